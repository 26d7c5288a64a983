package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ResponseTestSuite defines the test suite for error responses
type ResponseTestSuite struct {
	suite.Suite
}

// TestResponseTestSuite runs the test suite
func TestResponseTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseTestSuite))
}

func (s *ResponseTestSuite) TestNewErrorResponse_Defaults() {
	resp := NewErrorResponse(ReconNotFound, "trace-123")

	s.Equal(string(ReconNotFound), resp.Error.Code)
	s.Equal(GetErrorMessage(ReconNotFound), resp.Error.Message)
	s.Equal("trace-123", resp.Error.TraceID)
	s.Empty(resp.Error.Details)
}

func (s *ResponseTestSuite) TestNewErrorResponse_WithOptions() {
	resp := NewErrorResponse(ReconConflictingResolution, "trace-456",
		WithMessage("custom message"),
		WithDetails("detail one", "detail two"),
	)

	s.Equal("custom message", resp.Error.Message)
	s.Len(resp.Error.Details, 2)
}

type fakeRef struct{}

func (fakeRef) String() string { return "discount/txn-9" }

func (s *ResponseTestSuite) TestWithTransaction_AppendsStateContext() {
	resp := NewErrorResponse(ReconConflictingResolution, "trace-789",
		WithTransaction(fakeRef{}, "part of a confirmed duplicate"),
	)

	s.Require().Len(resp.Error.Details, 1)
	s.Contains(resp.Error.Details[0], "discount/txn-9")
	s.Contains(resp.Error.Details[0], "confirmed duplicate")
}

func (s *ResponseTestSuite) TestNewValidationError() {
	resp := NewValidationError(map[string]string{"name": "is required"}, "trace-1")

	s.Equal(string(ValidationGeneral), resp.Error.Code)
	s.Len(resp.Error.Details, 1)
	s.Contains(resp.Error.Details[0], "name")
}

func (s *ResponseTestSuite) TestWrapSystemError_HidesInternals() {
	internal := errors.New("pgx: connection refused")
	resp, err := WrapSystemError(internal, "trace-2")

	s.Equal(internal, err)
	s.Equal(string(SystemInternalError), resp.Error.Code)
	s.NotContains(resp.Error.Message, "pgx")
}

func (s *ResponseTestSuite) TestToJSON_RoundTrips() {
	resp := NewErrorResponse(PatternInvalidRegex, "trace-3")

	data, err := resp.ToJSON()
	s.Require().NoError(err)

	var decoded ErrorResponse
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Equal(resp.Error.Code, decoded.Error.Code)
}

func (s *ResponseTestSuite) TestIsClientError() {
	s.True(NewErrorResponse(ReconNotFound, "t").IsClientError())
	s.False(NewErrorResponse(SystemDatabaseError, "t").IsClientError())
}
