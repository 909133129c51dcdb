package validators

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	apperrors "github.com/vparse/vparse/internal/errors"
)

func TestHandlers(t *testing.T) {
	h := NewHandlers(DefaultRegistry())

	Convey("Given the validation handlers", t, func() {
		Convey("A supported URL without scheme validates", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(`{"url":"v.qq.com/x/cover/abc.html"}`))
			w := httptest.NewRecorder()
			h.ValidateURL(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			var result ValidationResult
			So(json.Unmarshal(w.Body.Bytes(), &result), ShouldBeNil)
			So(result.Valid, ShouldBeTrue)
			So(result.Platform, ShouldEqual, "tencent")
			So(result.URL, ShouldEqual, "https://v.qq.com/x/cover/abc.html")
		})

		Convey("An unsupported URL is unprocessable", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/validate?url=http://example.com", nil)
			w := httptest.NewRecorder()
			h.ValidateURLQuery(w, req)

			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("An empty URL is a bad request", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/validate?url=%20", nil)
			w := httptest.NewRecorder()
			h.ValidateURLQuery(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var resp apperrors.ErrorResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, apperrors.CodeEmptyInput)
		})

		Convey("Malformed JSON is a bad request", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(`{`))
			w := httptest.NewRecorder()
			h.ValidateURL(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An oversized body is a bad request", func() {
			body := `{"url":"v.qq.com/` + strings.Repeat("a", maxRequestBody) + `"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(body))
			w := httptest.NewRecorder()
			h.ValidateURL(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
			var resp apperrors.ErrorResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, apperrors.CodeInvalidRequest)
		})

		Convey("Platforms are listed in order", func() {
			w := httptest.NewRecorder()
			h.GetSupportedPlatforms(w, httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil))

			var resp SupportedPlatformsResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.Platforms, ShouldHaveLength, 10)
			So(resp.Platforms[0], ShouldEqual, "tencent")
		})
	})
}
