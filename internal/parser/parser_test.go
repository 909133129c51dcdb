package parser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/vparse/vparse/internal/cache"
	"github.com/vparse/vparse/internal/config"
	apperrors "github.com/vparse/vparse/internal/errors"
	"github.com/vparse/vparse/internal/logger"
	"github.com/vparse/vparse/internal/metrics"
	"github.com/vparse/vparse/internal/probe"
	"github.com/vparse/vparse/internal/resolver"
	"github.com/vparse/vparse/internal/validators"
)

const prefix = "https://jx.example.com/?url="

// scriptedProber returns the next scripted status for every probe
type scriptedProber struct {
	mu     sync.Mutex
	status int
	calls  []string
}

func (p *scriptedProber) Probe(ctx context.Context, target string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, target)
	if p.status == http.StatusOK {
		return nil
	}
	return &probe.StatusError{StatusCode: p.status}
}

type fakeTitles struct {
	title string
	err   error
	calls int
}

func (f *fakeTitles) Title(ctx context.Context, pageURL string) (string, error) {
	f.calls++
	return f.title, f.err
}

func newService(p resolver.Prober, c cache.Cache, titles TitleFetcher) *Service {
	quiet := logger.New(&logger.Config{Output: io.Discard})
	m := metrics.New()

	res, err := resolver.New(&resolver.Config{
		Candidates: resolver.CandidatesFromConfig([]config.CandidateConfig{
			{Name: "default", Prefix: prefix},
			{Name: "backup", Prefix: "https://jx2.example.com/?url="},
		}),
		Prober:      p,
		MaxAttempts: 2,
		Logger:      quiet,
		Metrics:     m,
	})
	if err != nil {
		panic(err)
	}

	svc, err := New(&Config{
		Registry: validators.DefaultRegistry(),
		Resolver: res,
		Cache:    c,
		Titles:   titles,
		Logger:   quiet,
		Metrics:  m,
	})
	if err != nil {
		panic(err)
	}
	return svc
}

func codeOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func TestParse(t *testing.T) {
	ctx := context.Background()

	Convey("Given a parse service whose first candidate answers 200", t, func() {
		p := &scriptedProber{status: http.StatusOK}
		svc := newService(p, nil, nil)

		Convey("A scheme-less supported URL resolves through the first candidate", func() {
			res, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})

			So(err, ShouldBeNil)
			So(res.URL, ShouldEqual, prefix+"https://v.qq.com/x/cover/abc.html")
			So(res.Type, ShouldEqual, resolver.TypeIframe)
			So(res.Platform, ShouldEqual, "tencent")
			So(p.calls, ShouldHaveLength, 1)
		})

		Convey("An unsupported URL fails without network calls", func() {
			_, err := svc.Parse(ctx, Request{URL: "http://example.com"})

			So(codeOf(err), ShouldEqual, apperrors.CodeUnsupportedPlatform)
			So(err.(*apperrors.AppError).Message, ShouldEqual, "unsupported platform")
			So(p.calls, ShouldBeEmpty)
		})

		Convey("An unsupported URL with a bad index reports the platform", func() {
			_, err := svc.Parse(ctx, Request{URL: "http://example.com", PreferredIndex: 9})

			So(codeOf(err), ShouldEqual, apperrors.CodeUnsupportedPlatform)
			So(p.calls, ShouldBeEmpty)
		})

		Convey("Empty and whitespace input fail before anything else", func() {
			for _, in := range []string{"", "   ", "\t\n"} {
				_, err := svc.Parse(ctx, Request{URL: in})
				So(codeOf(err), ShouldEqual, apperrors.CodeEmptyInput)
			}
			So(p.calls, ShouldBeEmpty)
		})

		Convey("An out-of-range index fails without network calls", func() {
			for _, idx := range []int{-1, 2, 9} {
				_, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html", PreferredIndex: idx})
				So(codeOf(err), ShouldEqual, apperrors.CodeInvalidCandidateIndex)
			}
			So(p.calls, ShouldBeEmpty)
		})

		Convey("The preferred index selects the first candidate tried", func() {
			res, err := svc.Parse(ctx, Request{URL: "https://www.iqiyi.com/v_1.html", PreferredIndex: 1})

			So(err, ShouldBeNil)
			So(res.Candidate, ShouldEqual, 1)
			So(res.CandidateName, ShouldEqual, "backup")
		})
	})

	Convey("Given a parse service whose candidates all fail", t, func() {
		p := &scriptedProber{status: http.StatusBadGateway}
		svc := newService(p, nil, nil)

		Convey("The aggregate failure is reported with a stable message", func() {
			_, err1 := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			_, err2 := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})

			So(codeOf(err1), ShouldEqual, apperrors.CodeAllCandidatesFailed)
			So(err1.Error(), ShouldEqual, err2.Error())
			So(p.calls, ShouldHaveLength, 8)
		})
	})
}

func TestParse_Cache(t *testing.T) {
	ctx := context.Background()

	Convey("Given a parse service with a memory cache", t, func() {
		p := &scriptedProber{status: http.StatusOK}
		c := cache.NewMemory(10, time.Minute)
		svc := newService(p, c, nil)

		Convey("A second identical request is served from the cache", func() {
			first, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			So(first.Cached, ShouldBeFalse)

			p.status = http.StatusBadGateway
			second, err := svc.Parse(ctx, Request{URL: "https://v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			So(second.Cached, ShouldBeTrue)
			So(second.URL, ShouldEqual, first.URL)
			So(p.calls, ShouldHaveLength, 1)
		})

		Convey("A different preferred index is a different entry", func() {
			_, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			res, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html", PreferredIndex: 1})
			So(err, ShouldBeNil)
			So(res.Cached, ShouldBeFalse)
			So(p.calls, ShouldHaveLength, 2)
		})

		Convey("Failures are not cached", func() {
			p.status = http.StatusBadGateway
			_, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(codeOf(err), ShouldEqual, apperrors.CodeAllCandidatesFailed)
			So(c.Len(), ShouldEqual, 0)

			p.status = http.StatusOK
			res, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			So(res.Cached, ShouldBeFalse)
		})

		Convey("Purging forces a fresh resolution", func() {
			_, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			So(svc.PurgeCache(ctx), ShouldBeNil)

			res, err := svc.Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})
			So(err, ShouldBeNil)
			So(res.Cached, ShouldBeFalse)
			So(p.calls, ShouldHaveLength, 2)
		})
	})
}

func TestParse_Titles(t *testing.T) {
	ctx := context.Background()

	Convey("Given a title fetcher", t, func() {
		p := &scriptedProber{status: http.StatusOK}

		Convey("The page title is attached on success", func() {
			titles := &fakeTitles{title: "第1集"}
			res, err := newService(p, nil, titles).Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})

			So(err, ShouldBeNil)
			So(res.Title, ShouldEqual, "第1集")
		})

		Convey("A failed lookup does not fail the parse", func() {
			titles := &fakeTitles{err: errors.New("timeout")}
			res, err := newService(p, nil, titles).Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})

			So(err, ShouldBeNil)
			So(res.Title, ShouldBeEmpty)
			So(titles.calls, ShouldEqual, 1)
		})

		Convey("No lookup happens on failure", func() {
			p.status = http.StatusNotFound
			titles := &fakeTitles{title: "x"}
			_, err := newService(p, nil, titles).Parse(ctx, Request{URL: "v.qq.com/x/cover/abc.html"})

			So(err, ShouldNotBeNil)
			So(titles.calls, ShouldEqual, 0)
		})
	})
}
