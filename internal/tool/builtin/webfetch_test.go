package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestExtractText(t *testing.T) {
	html := `<html><head><style>body{color:red}</style>
<script>alert("x")</script></head>
<body><h1>Tuition &amp; Fees</h1><p>Fall term   rates.</p></body></html>`
	got := ExtractText(html, 4000)
	if strings.Contains(got, "alert") || strings.Contains(got, "color:red") {
		t.Errorf("script/style 未丢弃: %q", got)
	}
	if !strings.Contains(got, "Tuition") || !strings.Contains(got, "Fall term rates.") {
		t.Errorf("正文缺失或空白未折叠: %q", got)
	}
}

func TestExtractText_Bounded(t *testing.T) {
	html := "<p>" + strings.Repeat("x", 10000) + "</p>"
	got := ExtractText(html, 100)
	if len([]rune(got)) != 100 {
		t.Errorf("长度 = %d, want 100", len([]rune(got)))
	}
}

func TestWebFetch_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Western tuition page</p></body></html>"))
	}))
	defer srv.Close()

	wf := NewWebFetchTool(2*time.Second, 4000)
	res, err := wf.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.OK() {
		t.Fatalf("Execute 应成功: %q", res.Err)
	}
	if !strings.Contains(res.Content, "Western tuition page") {
		t.Errorf("Content: %q", res.Content)
	}
}

func TestWebFetch_InvalidURL(t *testing.T) {
	wf := NewWebFetchTool(time.Second, 100)
	for _, u := range []any{"", "ftp://example.com/x", "not a url", 42} {
		res, err := wf.Execute(context.Background(), map[string]any{"url": u})
		if err != nil {
			t.Fatalf("Execute(%v) 不应上抛 error: %v", u, err)
		}
		if res.OK() {
			t.Errorf("Execute(%v) 应失败", u)
		}
	}
}

func TestWebFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wf := NewWebFetchTool(time.Second, 100)
	res, err := wf.Execute(context.Background(), map[string]any{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute 不应上抛 error: %v", err)
	}
	if res.OK() {
		t.Error("5xx 应记为失败结果")
	}
}
