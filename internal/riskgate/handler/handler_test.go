package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"riskgate/internal/proposal"
	"riskgate/internal/riskgate"
	"riskgate/internal/riskgate/service"
	"riskgate/internal/riskgate/service/mocks"
	auditstore "riskgate/internal/riskgate/store/audit"
	"riskgate/pkg/platform/audit"
	auditmem "riskgate/pkg/platform/audit/store/memory"
	"riskgate/pkg/testutil"
)

// The handler suite runs against the real service with in-memory stores and
// a mocked assessor, so responses reflect the full pipeline.
type GateHandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	proposals *proposal.InMemoryStore
	records   *auditstore.InMemoryStore
	assessor  *mocks.MockAssessor
	router    chi.Router
}

func (s *GateHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.proposals = proposal.NewInMemoryStore()
	s.records = auditstore.NewInMemoryStore()
	s.assessor = mocks.NewMockAssessor(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := service.New(
		s.proposals,
		s.records,
		s.assessor,
		audit.NewPublisher(auditmem.New()),
		nil,
		nil,
		logger,
		service.Config{},
	)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
}

func TestGateHandlerSuite(t *testing.T) {
	suite.Run(t, new(GateHandlerSuite))
}

func (s *GateHandlerSuite) seedProposal(sections map[string]string) proposal.Proposal {
	p := proposal.Proposal{
		ID:         "prop-1",
		Title:      "Data Platform Migration",
		ClientName: "Acme Corp",
		Status:     proposal.StatusInReview,
		Sections:   sections,
	}
	s.Require().NoError(s.proposals.Save(context.Background(), p))
	return p
}

func completeSections() map[string]string {
	return map[string]string{
		"Executive Summary":    "We will migrate the legacy data platform to the cloud.",
		"Scope & Deliverables": "Migration of 12 pipelines and 3 dashboards.",
		"Delivery Approach":    "Three phases over six months.",
		"Assumptions":          "Client provides environment access within two weeks.",
		"Risks":                "Legacy system documentation may be incomplete.",
	}
}

// do issues a request with an authenticated manager in context, the way the
// auth middleware would populate it.
func (s *GateHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req = testutil.WithActor(req, "reviewer@example.test", "manager")
	return testutil.DoRequest(s.router, req)
}

func (s *GateHandlerSuite) TestAnalyze_CleanContentReleases() {
	p := s.seedProposal(completeSections())
	s.assessor.EXPECT().Assess(gomock.Any(), gomock.Any()).
		Return(riskgate.AISummary{OverallRiskLevel: riskgate.LevelLow, RiskScore: 10, ModelUsed: "test-model"}, nil)

	rr := s.do(http.MethodPost, "/api/risk-gate/analyze", map[string]any{"proposal_id": p.ID})
	s.Equal(http.StatusOK, rr.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal(true, resp["can_release"])
	s.Equal("released", resp["decision_action"])
	s.Equal("low", resp["overall_risk_level"])
	s.NotZero(resp["run_id"])
}

func (s *GateHandlerSuite) TestAnalyze_EmailContentIsBlockedAndNeverEchoed() {
	sections := completeSections()
	sections["Assumptions"] = "Contact john.doe@example.com for access."
	p := s.seedProposal(sections)
	s.assessor.EXPECT().Assess(gomock.Any(), gomock.Any()).Times(0)

	rr := s.do(http.MethodPost, "/api/risk-gate/analyze", map[string]any{"proposal_id": p.ID})
	s.Equal(http.StatusBadRequest, rr.Code)

	body := rr.Body.String()
	s.NotContains(body, "john.doe@example.com")

	var resp map[string]any
	s.Require().NoError(json.Unmarshal([]byte(body), &resp))
	s.Equal(true, resp["blocked"])
	s.Equal(false, resp["can_release"])
	reasons, ok := resp["reasons"].([]any)
	s.Require().True(ok)
	s.Contains(reasons, "email")
}

func (s *GateHandlerSuite) TestAnalyze_UnknownProposalIs404() {
	rr := s.do(http.MethodPost, "/api/risk-gate/analyze", map[string]any{"proposal_id": "missing"})
	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), `"error":"not_found"`)
}

func (s *GateHandlerSuite) TestAnalyze_MalformedBodyIs400() {
	req := httptest.NewRequest(http.MethodPost, "/api/risk-gate/analyze", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(rr.Body.String(), `"error":"bad_request"`)
}

func (s *GateHandlerSuite) blockedRun() int64 {
	p := s.seedProposal(completeSections())
	s.assessor.EXPECT().Assess(gomock.Any(), gomock.Any()).
		Return(riskgate.AISummary{OverallRiskLevel: riskgate.LevelHigh, RiskScore: 90, ModelUsed: "test-model"}, nil)
	rr := s.do(http.MethodPost, "/api/risk-gate/analyze", map[string]any{"proposal_id": p.ID})
	s.Require().Equal(http.StatusOK, rr.Code)

	var resp struct {
		RunID      int64 `json:"run_id"`
		CanRelease bool  `json:"can_release"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Require().False(resp.CanRelease)
	return resp.RunID
}

func (s *GateHandlerSuite) TestOverride_Applied() {
	runID := s.blockedRun()

	rr := s.do(http.MethodPost, "/api/risk-gate/override", map[string]any{
		"run_id":          runID,
		"override_reason": "client accepted the residual risk",
	})
	s.Equal(http.StatusOK, rr.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal("overridden", resp["decision_action"])
	s.Equal(true, resp["can_release"])
	s.Equal("reviewer@example.test", resp["override_by"])
}

func (s *GateHandlerSuite) TestOverride_ForbiddenRoleIs403() {
	runID := s.blockedRun()

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/risk-gate/override", map[string]any{
		"run_id":          runID,
		"override_reason": "please",
	})
	req = testutil.WithActor(req, "intern@example.test", "sales")
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusForbidden, rr.Code)
	s.Contains(rr.Body.String(), `"error":"forbidden"`)
}

func (s *GateHandlerSuite) TestOverride_UnknownRunIs404() {
	rr := s.do(http.MethodPost, "/api/risk-gate/override", map[string]any{
		"run_id":          999,
		"override_reason": "reason",
	})
	s.Equal(http.StatusNotFound, rr.Code)
}

func (s *GateHandlerSuite) TestLatest_ReturnsOverriddenRecordAfterOverride() {
	runID := s.blockedRun()
	rr := s.do(http.MethodPost, "/api/risk-gate/override", map[string]any{
		"run_id":          runID,
		"override_reason": "client accepted the residual risk",
	})
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/api/risk-gate/proposals/prop-1/latest", nil)
	s.Equal(http.StatusOK, rr.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &resp))
	s.Equal("overridden", resp["decision_action"])
	s.Equal(true, resp["can_release"])
	s.NotEqual(float64(runID), resp["run_id"])
}

func (s *GateHandlerSuite) TestLatest_UnknownProposalIs404() {
	rr := s.do(http.MethodGet, "/api/risk-gate/proposals/nope/latest", nil)
	s.Equal(http.StatusNotFound, rr.Code)
}
