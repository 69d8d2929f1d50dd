package router

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiwangfds/javanotes/config"
	apperrors "github.com/weiwangfds/javanotes/internal/errors"
	"github.com/weiwangfds/javanotes/internal/kv"
	"github.com/weiwangfds/javanotes/internal/service/ingest"
	"github.com/weiwangfds/javanotes/internal/service/notes"
	"github.com/weiwangfds/javanotes/internal/service/record"
)

// switchable 可以在测试中途让写入失败
type switchable struct {
	*kv.Memory
	fail bool
}

func (s *switchable) Set(key string, value []byte) error {
	if s.fail {
		return errors.New("quota exceeded")
	}
	return s.Memory.Set(key, value)
}

type testServer struct {
	engine  *gin.Engine
	store   *record.Store
	backend *switchable
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	backend := &switchable{Memory: kv.NewMemory()}
	store, err := record.NewStore(backend, "")
	require.NoError(t, err)

	noteService, err := notes.NewNoteService("")
	require.NoError(t, err)

	ingestor := ingest.NewIngestor(store, config.IngestConfig{
		Extension:       ".java",
		Categories:      []string{"homework", "project", "practice", "notes"},
		DefaultCategory: "homework",
		MaxFileSize:     1 << 20,
		ReadWorkers:     2,
	})

	r, err := NewRouter(Deps{Store: store, Ingestor: ingestor, Notes: noteService, Mode: gin.TestMode})
	require.NoError(t, err)
	return &testServer{engine: r.GetEngine(), store: store, backend: backend}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

type upload struct{ name, content string }

func multipartRequest(t *testing.T, path, category string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	if category != "" {
		require.NoError(t, mw.WriteField("category", category))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func document(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(w.Body)
	require.NoError(t, err)
	return doc
}

type flashMessage struct {
	Message string `json:"m"`
	Kind    string `json:"k"`
}

// flashOf 解码重定向响应中设置的提示消息 cookie
func flashOf(t *testing.T, w *httptest.ResponseRecorder) flashMessage {
	t.Helper()
	for _, ck := range w.Result().Cookies() {
		if ck.Name != "flash" {
			continue
		}
		raw, err := url.QueryUnescape(ck.Value)
		require.NoError(t, err)
		data, err := base64.RawURLEncoding.DecodeString(raw)
		require.NoError(t, err)
		var f flashMessage
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	}
	t.Fatalf("no flash cookie in response")
	return flashMessage{}
}

// follow 带上响应设置的 cookie 请求重定向地址
func (s *testServer) follow(t *testing.T, w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, w.Header().Get("Location"), nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	return s.do(req)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.get("/health")
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status  string `json:"status"`
		Records int    `json:"records"`
	}
	env := decode(t, w, &data)
	assert.Equal(t, "ok", data.Status)
	assert.NotEmpty(t, env.RequestID)
}

func TestAPIUploadListGetDelete(t *testing.T) {
	s := newTestServer(t)

	w := s.do(multipartRequest(t, "/api/v1/records/upload", "project",
		upload{"Main.java", "public class Main {}"},
		upload{"Notes.txt", "hello"},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var up struct {
		Added   []record.FileRecord `json:"added"`
		Skipped []ingest.Skipped    `json:"skipped"`
	}
	env := decode(t, w, &up)
	assert.Equal(t, "Files uploaded successfully!", env.Message)
	require.Len(t, up.Added, 1)
	assert.Equal(t, "Main.java", up.Added[0].Name)
	assert.Equal(t, "project", up.Added[0].Category)
	require.Len(t, up.Skipped, 1)
	assert.Equal(t, "Notes.txt", up.Skipped[0].Name)

	id := up.Added[0].ID

	t.Run("list and filter", func(t *testing.T) {
		var list struct {
			List  []record.FileRecord `json:"list"`
			Total int                 `json:"total"`
		}
		decode(t, s.get("/api/v1/records"), &list)
		assert.Len(t, list.List, 1)
		assert.Equal(t, 1, list.Total)

		decode(t, s.get("/api/v1/records?q=PROJ"), &list)
		assert.Len(t, list.List, 1)

		decode(t, s.get("/api/v1/records?q=nothing"), &list)
		assert.Empty(t, list.List)
	})

	t.Run("get", func(t *testing.T) {
		var r record.FileRecord
		decode(t, s.get("/api/v1/records/"+id), &r)
		assert.Equal(t, "public class Main {}", r.Content)

		w := s.get("/api/v1/records/missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int(apperrors.ErrRecordNotFound), decode(t, w, nil).Code)
	})

	t.Run("download", func(t *testing.T) {
		w := s.get("/api/v1/records/" + id + "/download")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "public class Main {}", w.Body.String())
		assert.Equal(t, `attachment; filename=Main.java`, w.Header().Get("Content-Disposition"))
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/x-java-source"))
	})

	t.Run("delete", func(t *testing.T) {
		var res struct {
			Removed bool `json:"removed"`
		}
		w := s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/records/"+id, nil))
		decode(t, w, &res)
		assert.True(t, res.Removed)

		w = s.do(httptest.NewRequest(http.MethodDelete, "/api/v1/records/"+id, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &res)
		assert.False(t, res.Removed)
		assert.Equal(t, 0, s.store.Len())
	})
}

func TestAPIUploadErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do(multipartRequest(t, "/api/v1/records/upload", "homework"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int(apperrors.ErrNoFiles), decode(t, w, nil).Code)

	w = s.do(multipartRequest(t, "/api/v1/records/upload", "secret", upload{"A.java", ""}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int(apperrors.ErrInvalidCategory), decode(t, w, nil).Code)

	w = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/records/upload", strings.NewReader("x")))
	assert.Equal(t, int(apperrors.ErrNoFiles), decode(t, w, nil).Code)
}

func TestAPIPersistFailureAndFlush(t *testing.T) {
	s := newTestServer(t)
	s.backend.fail = true

	w := s.do(multipartRequest(t, "/api/v1/records/upload", "", upload{"A.java", "class A {}"}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var up struct {
		Added         []record.FileRecord `json:"added"`
		PersistErrors []string            `json:"persist_errors"`
	}
	env := decode(t, w, &up)
	assert.Equal(t, int(apperrors.ErrPersistFailed), env.Code)
	assert.Len(t, up.Added, 1, "记录保留在内存中")
	assert.NotEmpty(t, up.PersistErrors)

	w = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/records/flush", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	s.backend.fail = false
	w = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/records/flush", nil))
	require.Equal(t, http.StatusOK, w.Code)

	raw, err := s.backend.Get(record.DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "A.java")
}

func TestAPINotes(t *testing.T) {
	s := newTestServer(t)

	var list []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	decode(t, s.get("/api/v1/notes"), &list)
	assert.Len(t, list, 8)

	decode(t, s.get("/api/v1/notes/search?q="), &list)
	assert.Len(t, list, 8, "空查询返回全部笔记")

	decode(t, s.get("/api/v1/notes/search?q=singleton"), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "design-patterns", list[0].ID)

	var note struct {
		Title string `json:"title"`
		HTML  string `json:"html"`
	}
	decode(t, s.get("/api/v1/notes/jdbc-notes"), &note)
	assert.Equal(t, "JDBC Database Connectivity", note.Title)
	assert.Contains(t, note.HTML, `<span class="keyword">`)

	w := s.get("/api/v1/notes/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, int(apperrors.ErrNoteNotFound), decode(t, w, nil).Code)
}

func TestAPILanguage(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/missing", nil)
	req.Header.Set("Accept-Language", "zh-CN")
	assert.Equal(t, "文件未找到", decode(t, s.do(req), nil).Message)
}

func TestIndexPage(t *testing.T) {
	s := newTestServer(t)

	t.Run("empty state", func(t *testing.T) {
		doc := document(t, s.get("/"))
		assert.Equal(t, "(0 files)", doc.Find("#file-count").Text())
		assert.Equal(t, "No files uploaded yet.", strings.TrimSpace(doc.Find("td.empty").Text()))
		assert.Equal(t, 4, doc.Find("select[name=category] option").Length())
		v, _ := doc.Find("option[selected]").Attr("value")
		assert.Equal(t, "homework", v)
	})

	_, err := s.store.Add(`<img src=x onerror=alert(1)>.java`, "x", "homework", 1)
	require.NoError(t, err)

	t.Run("single file counter", func(t *testing.T) {
		doc := document(t, s.get("/"))
		assert.Equal(t, "(1 file)", doc.Find("#file-count").Text())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "zh-CN")
		doc = document(t, s.do(req))
		assert.Equal(t, "（1 个文件）", doc.Find("#file-count").Text())
	})

	t.Run("filtered miss", func(t *testing.T) {
		doc := document(t, s.get("/?q=kotlin"))
		assert.Equal(t, "No files match your search criteria.", strings.TrimSpace(doc.Find("td.empty").Text()))
	})

	_, err = s.store.Add("Util.java", "y", "project", 1536)
	require.NoError(t, err)

	t.Run("rows are escaped", func(t *testing.T) {
		w := s.get("/")
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "<img src=x")

		doc := document(t, w)
		rows := doc.Find("#files tbody tr[data-id]")
		require.Equal(t, 2, rows.Length())
		assert.Equal(t, `<img src=x onerror=alert(1)>.java`, rows.First().Find("td.name").Text())
		assert.Equal(t, "1.5 KB", rows.Last().Find("td.size").Text())
		assert.Equal(t, 0, doc.Find("img").Length())
	})

	t.Run("search", func(t *testing.T) {
		doc := document(t, s.get("/?q=PROJECT"))
		rows := doc.Find("#files tbody tr[data-id]")
		require.Equal(t, 1, rows.Length())
		assert.Equal(t, "Util.java", rows.Find("td.name").Text())
		assert.Equal(t, "(2 files)", doc.Find("#file-count").Text())
		v, _ := doc.Find("input[name=q]").Attr("value")
		assert.Equal(t, "PROJECT", v)
	})

	t.Run("query string cannot inject a message", func(t *testing.T) {
		w := s.get("/?msg=" + url.QueryEscape("Your session expired. Re-upload at evil.example") + "&kind=error")
		assert.Equal(t, 0, document(t, w).Find(".toast").Length())
	})

	t.Run("flash is escaped and shown once", func(t *testing.T) {
		w := s.do(multipartRequest(t, "/upload", "", upload{"<i>x.txt", "x"}))
		require.Equal(t, http.StatusSeeOther, w.Code)

		page := s.follow(t, w)
		assert.NotContains(t, page.Body.String(), "<i>x.txt")
		toast := document(t, page).Find(".toast")
		assert.Contains(t, toast.Text(), "<i>x.txt (Only .java files allowed)")
		assert.True(t, toast.HasClass("error"))

		cleared := false
		for _, ck := range page.Result().Cookies() {
			if ck.Name == "flash" && ck.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared, "显示后清除提示")
	})
}

func TestFormUpload(t *testing.T) {
	s := newTestServer(t)

	w := s.do(multipartRequest(t, "/upload", "practice",
		upload{"Main.java", "class Main {}"},
		upload{"Notes.txt", "x"},
	))
	require.Equal(t, http.StatusSeeOther, w.Code)

	assert.Equal(t, "/", w.Header().Get("Location"))
	f := flashOf(t, w)
	assert.Equal(t, "warning", f.Kind)
	assert.Contains(t, f.Message, "Files uploaded successfully!")
	assert.Contains(t, f.Message, "Skipped: Notes.txt (Only .java files allowed)")
	assert.Equal(t, 1, s.store.Len())

	w = s.do(multipartRequest(t, "/upload", "", upload{"Notes.txt", "x"}))
	assert.Equal(t, "error", flashOf(t, w).Kind)

	w = s.do(multipartRequest(t, "/upload", "practice"))
	f = flashOf(t, w)
	assert.Equal(t, "error", f.Kind)
	assert.Equal(t, "Please select at least one file", f.Message)

	t.Run("skip summary is translated", func(t *testing.T) {
		req := multipartRequest(t, "/upload", "practice", upload{"A.java", "class A {}"}, upload{"B.txt", "x"})
		req.Header.Set("Accept-Language", "zh-CN")
		f := flashOf(t, s.do(req))
		assert.Contains(t, f.Message, "已跳过： B.txt")
	})
}

func TestViewDownloadDeletePages(t *testing.T) {
	s := newTestServer(t)
	r, err := s.store.Add("Main.java", `public class Main { String s = "</code><script>"; }`, "homework", 10)
	require.NoError(t, err)

	t.Run("view", func(t *testing.T) {
		w := s.get("/records/" + r.ID)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "<script>")

		doc := document(t, w)
		assert.Equal(t, "Main.java", doc.Find("#file-name").Text())
		assert.Equal(t, "public", doc.Find("pre.viewer span.keyword").First().Text())
		assert.Equal(t, `"</code><script>"`, doc.Find("pre.viewer span.string").Text())
	})

	t.Run("view missing", func(t *testing.T) {
		w := s.get("/records/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "File not found", document(t, w).Find(".error-message").Text())
	})

	t.Run("download", func(t *testing.T) {
		w := s.get("/records/" + r.ID + "/download")
		assert.Equal(t, r.Content, w.Body.String())
		assert.Equal(t, http.StatusNotFound, s.get("/records/nope/download").Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := s.do(httptest.NewRequest(http.MethodPost, "/records/"+r.ID+"/delete", nil))
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "File deleted successfully!", flashOf(t, w).Message)
		assert.Equal(t, 0, s.store.Len())

		w = s.do(httptest.NewRequest(http.MethodPost, "/records/"+r.ID+"/delete", nil))
		assert.Equal(t, "error", flashOf(t, w).Kind)
	})
}

func TestNotesPages(t *testing.T) {
	s := newTestServer(t)

	doc := document(t, s.get("/notes"))
	assert.Equal(t, 8, doc.Find("#notes-list li").Length())
	assert.Equal(t, notes.DefaultTitle, doc.Find("#note-title").Text())

	doc = document(t, s.get("/notes?q=HashMap"))
	assert.Equal(t, 1, doc.Find("#search-results li").Length())

	doc = document(t, s.get("/notes/design-patterns"))
	assert.Equal(t, "Design Patterns", doc.Find("#note-title").Text())
	assert.Equal(t, "design-patterns", strings.TrimPrefix(doc.Find("#notes-list a.active").AttrOr("href", ""), "/notes/"))
	assert.Equal(t, 1, doc.Find("#notes-display pre.code-block").Length())

	assert.Equal(t, http.StatusNotFound, s.get("/notes/missing").Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	w := s.do(req)
	assert.Equal(t, "trace-1", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-1", decode(t, w, nil).RequestID)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.get("/does/not/exist").Code)
}
