package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeypan/arxiv-digest/internal/fetcher"
)

func testPaper() fetcher.Paper {
	return fetcher.Paper{
		ID:       "2401.12345",
		Title:    "Latent Diffusion Models",
		Abstract: "We study diffusion models for image synthesis.",
	}
}

func chatReply(t *testing.T, content string) []byte {
	t.Helper()
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal reply: %v", err)
	}
	return data
}

func newTestSummarizer(url string) *DeepSeekSummarizer {
	return NewDeepSeekSummarizer(url, "test-key", "deepseek-chat", 500, 0.3, 5*time.Second)
}

func TestSummarizeSuccess(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatReply(t, `{"title_zh":"潜在扩散模型","contribution":"提出了潜在扩散模型","method":"在潜在空间进行扩散","finding":"生成质量显著提升"}`))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	sum, err := s.Summarize(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}

	if sum.TitleZH != "潜在扩散模型" {
		t.Errorf("Unexpected title_zh: %q", sum.TitleZH)
	}
	if sum.Contribution == "" || sum.Method == "" || sum.Finding == "" {
		t.Errorf("Expected all summary fields populated: %+v", sum)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", gotAuth)
	}
	if gotReq.Model != "deepseek-chat" {
		t.Errorf("Expected model 'deepseek-chat', got %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Fatalf("Expected one user message, got %+v", gotReq.Messages)
	}
}

func TestSummarizeStripsMarkdownFences(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, "```json\n{\"title_zh\":\"标题\",\"contribution\":\"贡献\",\"method\":\"方法\",\"finding\":\"发现\"}\n```"))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	sum, err := s.Summarize(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if sum.Contribution != "贡献" {
		t.Errorf("Expected fenced JSON to parse, got %+v", sum)
	}
}

func TestSummarizeExtractsEmbeddedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, `好的，以下是总结：{"title_zh":"标题","contribution":"贡献","method":"方法","finding":"发现"} 希望有帮助。`))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	sum, err := s.Summarize(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if sum.Method != "方法" {
		t.Errorf("Expected embedded JSON to parse, got %+v", sum)
	}
}

func TestSummarizeRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	_, err := s.Summarize(context.Background(), testPaper())
	if err == nil {
		t.Fatal("Expected error on HTTP 429")
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got: %v", err)
	}
}

func TestSummarizeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	_, err := s.Summarize(context.Background(), testPaper())
	if err == nil {
		t.Fatal("Expected error on HTTP 500")
	}
	if errors.Is(err, ErrRateLimited) {
		t.Errorf("HTTP 500 must not be classified as rate limiting: %v", err)
	}
}

func TestSummarizeAPIErrorPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	_, err := s.Summarize(context.Background(), testPaper())
	if err == nil {
		t.Fatal("Expected error from API error payload")
	}
}

func TestSummarizeUnparsableOutput(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, "抱歉，我无法总结这篇论文。"))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	_, err := s.Summarize(context.Background(), testPaper())
	if err == nil {
		t.Fatal("Expected error for non-JSON model output")
	}
}

func TestParseSummaryRejectsEmpty(t *testing.T) {
	if _, err := parseSummary(`{"title_zh":"只有标题"}`); err == nil {
		t.Error("Expected error for summary JSON with no content fields")
	}
}

func TestSummarizeSendsConfiguredTemperature(t *testing.T) {
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatReply(t, `{"title_zh":"标题","contribution":"贡献","method":"方法","finding":"发现"}`))
	}))
	defer ts.Close()

	s := NewDeepSeekSummarizer(ts.URL, "test-key", "deepseek-chat", 500, 0, 5*time.Second)
	if _, err := s.Summarize(context.Background(), testPaper()); err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0 {
		t.Errorf("Expected explicit temperature 0 on the wire, got %v", gotReq.Temperature)
	}
}

func TestScoreSuccess(t *testing.T) {
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write(chatReply(t, `{"score": 85}`))
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	s.Profile = "扩散模型与版面生成"
	score, err := s.Score(context.Background(), testPaper())
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}

	if score != 85 {
		t.Errorf("Expected score 85, got %d", score)
	}
	if gotReq.MaxTokens != scoreMaxTokens {
		t.Errorf("Expected max_tokens %d for scoring, got %d", scoreMaxTokens, gotReq.MaxTokens)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0 {
		t.Errorf("Expected temperature 0 for scoring, got %v", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 1 || !strings.Contains(gotReq.Messages[0].Content, "扩散模型与版面生成") {
		t.Errorf("Expected prompt to carry the reader profile, got %+v", gotReq.Messages)
	}
}

func TestScoreClampsRange(t *testing.T) {
	tests := []struct {
		reply string
		want  int
	}{
		{`{"score": 150}`, 100},
		{`{"score": -5}`, 0},
		{`{"score": 0}`, 0},
		{"```json\n{\"score\": 42}\n```", 42},
		{`相关度如下：{"score": 60}`, 60},
	}
	for _, tt := range tests {
		score, err := parseScore(tt.reply)
		if err != nil {
			t.Errorf("parseScore(%q) returned error: %v", tt.reply, err)
			continue
		}
		if score != tt.want {
			t.Errorf("parseScore(%q) = %d, want %d", tt.reply, score, tt.want)
		}
	}
}

func TestScoreRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	s := newTestSummarizer(ts.URL)
	_, err := s.Score(context.Background(), testPaper())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("Expected ErrRateLimited, got: %v", err)
	}
}

func TestScoreMissingField(t *testing.T) {
	if _, err := parseScore(`{"points": 80}`); err == nil {
		t.Error("Expected error for score JSON without a score field")
	}
	if _, err := parseScore("这篇论文很相关"); err == nil {
		t.Error("Expected error for non-JSON score output")
	}
}
