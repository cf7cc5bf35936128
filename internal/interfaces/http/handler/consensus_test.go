package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"z-consensus-api/internal/domain/entity"
	"z-consensus-api/internal/interfaces/http/dto"
	"z-consensus-api/pkg/errors"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubRunner 以固定结果替代共识引擎，并记录收到的请求
type stubRunner struct {
	result *entity.ConsensusResult
	err    error
	got    *entity.ConsensusRequest
}

func (s *stubRunner) Run(_ context.Context, req *entity.ConsensusRequest) (*entity.ConsensusResult, error) {
	s.got = req
	return s.result, s.err
}

func newConsensusRouter(runner consensusRunner) *gin.Engine {
	r := gin.New()
	h := &ConsensusHandler{engine: runner}
	r.POST("/v1/consensus", h.Run)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func consensusBody(t *testing.T, mutate func(*dto.ConsensusRequest)) []byte {
	t.Helper()
	cfg := dto.LLMConfigDTO{Endpoint: "https://api.openai.com/v1", Model: "gpt-4o", APIKey: "sk-test"}
	req := dto.ConsensusRequest{
		Prompt:       "the question",
		Participants: []dto.LLMConfigDTO{cfg, cfg, cfg},
		Chairman:     cfg,
	}
	if mutate != nil {
		mutate(&req)
	}
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return raw
}

func doneResult() *entity.ConsensusResult {
	res := entity.NewConsensusResult("the question")
	res.Responses = []entity.ResponseRecord{
		{Participant: 0, Text: "alpha answer"},
		{Participant: 1, Text: "beta answer"},
		{Participant: 2, Text: "gamma answer"},
	}
	res.Rankings = []entity.RankingRecord{
		{Participant: 0, Raw: "1. B\n2. A\n3. C", ParsedOrder: []int{1, 0, 2}},
		{Participant: 1, Raw: "1. A\n2. B\n3. C", ParsedOrder: []int{0, 1, 2}},
		{Participant: 2, Raw: "free text"},
	}
	res.Complete("the synthesized answer")
	return res
}

func TestConsensusHandlerRun(t *testing.T) {
	runner := &stubRunner{result: doneResult()}
	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", consensusBody(t, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}

	var env dto.Response[dto.ConsensusResultResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != 200 || env.Message != "success" {
		t.Errorf("envelope = %d %q", env.Code, env.Message)
	}
	if env.Data.Status != "done" {
		t.Errorf("status = %q", env.Data.Status)
	}
	if env.Data.FinalOutput == nil || *env.Data.FinalOutput != "the synthesized answer" {
		t.Errorf("final output = %v", env.Data.FinalOutput)
	}
	if len(env.Data.Responses) != 3 {
		t.Errorf("responses = %d", len(env.Data.Responses))
	}

	if runner.got == nil {
		t.Fatal("engine was not invoked")
	}
	if runner.got.Prompt != "the question" {
		t.Errorf("engine prompt = %q", runner.got.Prompt)
	}
	// DTO 转换把空 type 默认为 openai
	if got := runner.got.Participants[0].Type; got != entity.ProviderOpenAICompatible {
		t.Errorf("participant type = %q", got)
	}
}

func TestConsensusHandlerRunInvalidJSON(t *testing.T) {
	runner := &stubRunner{}
	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", []byte("{not json"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var env dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(env.Message, "invalid request body") {
		t.Errorf("message = %q", env.Message)
	}
	if runner.got != nil {
		t.Error("engine must not run on malformed body")
	}
}

func TestConsensusHandlerRunValidationError(t *testing.T) {
	runner := &stubRunner{}
	body := consensusBody(t, func(r *dto.ConsensusRequest) {
		r.Participants = r.Participants[:2]
	})
	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var env dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(env.Message, "exactly 3 participants required, got 2") {
		t.Errorf("message = %q", env.Message)
	}
	if runner.got != nil {
		t.Error("engine must not run on invalid request")
	}
}

func TestConsensusHandlerRunInvalidAttachment(t *testing.T) {
	runner := &stubRunner{}
	body := consensusBody(t, func(r *dto.ConsensusRequest) {
		r.File = &dto.FileDTO{Name: "chart.png", Type: "image/png", Content: "%%%"}
	})
	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", body)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var env dto.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error == nil || env.Error.ErrorCode != string(errors.CodeAttachmentInvalid) {
		t.Errorf("error detail = %+v", env.Error)
	}
	if !strings.Contains(env.Message, "not valid base64") {
		t.Errorf("message = %q", env.Message)
	}
}

func TestConsensusHandlerRunEngineFailureReturnsPartialResult(t *testing.T) {
	res := entity.NewConsensusResult("the question")
	res.Responses = []entity.ResponseRecord{
		{Participant: 0, ErrorKind: "auth_error", ErrorDetail: "status 401"},
		{Participant: 1, ErrorKind: "timeout"},
		{Participant: 2, ErrorKind: "unavailable"},
	}
	res.Fail("no participant produced a response")
	runner := &stubRunner{result: res, err: errors.ErrNoResponses}

	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", consensusBody(t, nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var env dto.Response[dto.ConsensusResultResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != http.StatusBadGateway {
		t.Errorf("envelope code = %d", env.Code)
	}
	if env.Message != "no participant produced a response" {
		t.Errorf("message = %q", env.Message)
	}
	// 失败响应仍携带已收集的槽位数据
	if env.Data.Status != "failed" || len(env.Data.Responses) != 3 {
		t.Errorf("data = %+v", env.Data)
	}
	if env.Data.Responses[0].Error != "auth_error" {
		t.Errorf("slot 0 error = %q", env.Data.Responses[0].Error)
	}
}

func TestConsensusHandlerRunUnexpectedError(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("boom")}
	w := postJSON(t, newConsensusRouter(runner), "/v1/consensus", consensusBody(t, nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var env dto.Response[dto.ConsensusResultResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Message != "unknown error" {
		t.Errorf("message = %q", env.Message)
	}
}
