package pageinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFetcher_Title(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/og":
			w.Write([]byte(`<html><head><meta property="og:title" content=" 第1集 "><title>fallback</title></head></html>`))
		case "/title":
			w.Write([]byte(`<html><head><title>  Plain Title </title></head></html>`))
		case "/none":
			w.Write([]byte(`<html><body>nothing</body></html>`))
		case "/ua":
			w.Write([]byte(`<title>` + r.Header.Get("User-Agent") + `</title>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client(), map[string]string{"User-Agent": "vparse-test"})
	ctx := context.Background()

	Convey("Given a page title fetcher", t, func() {
		Convey("og:title wins over <title>", func() {
			title, err := f.Title(ctx, srv.URL+"/og")
			So(err, ShouldBeNil)
			So(title, ShouldEqual, "第1集")
		})

		Convey("<title> is used without og:title", func() {
			title, err := f.Title(ctx, srv.URL+"/title")
			So(err, ShouldBeNil)
			So(title, ShouldEqual, "Plain Title")
		})

		Convey("a page without a title is an error", func() {
			_, err := f.Title(ctx, srv.URL+"/none")
			So(err, ShouldEqual, ErrNoTitle)
		})

		Convey("non-200 responses are errors", func() {
			_, err := f.Title(ctx, srv.URL+"/missing")
			So(err, ShouldNotBeNil)
		})

		Convey("configured headers are sent", func() {
			title, err := f.Title(ctx, srv.URL+"/ua")
			So(err, ShouldBeNil)
			So(title, ShouldEqual, "vparse-test")
		})
	})
}
