package predictdepressionrisk

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/logger"
)

// ==========================
// Mock Job Client Implementation
// ==========================

type MockJobClient struct {
	mock.Mock
}

func (m *MockJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return m.Called().Get(0).(commands.CompleteJobCommandStep1)
}

func (m *MockJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return m.Called().Get(0).(commands.FailJobCommandStep1)
}

func (m *MockJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return m.Called().Get(0).(commands.ThrowErrorCommandStep1)
}

func marshalVariables(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	return string(raw), err
}

// fakeCompleteCommand records what the handler would send to the gateway.
type fakeCompleteCommand struct {
	jobKey    int64
	variables string
	sent      bool
	sendErr   error
}

func (c *fakeCompleteCommand) JobKey(key int64) commands.CompleteJobCommandStep2 {
	c.jobKey = key
	return c
}

func (c *fakeCompleteCommand) VariablesFromString(v string) (commands.DispatchCompleteJobCommand, error) {
	c.variables = v
	return c, nil
}

func (c *fakeCompleteCommand) VariablesFromStringer(v fmt.Stringer) (commands.DispatchCompleteJobCommand, error) {
	return c.VariablesFromString(v.String())
}

func (c *fakeCompleteCommand) VariablesFromMap(v map[string]interface{}) (commands.DispatchCompleteJobCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeCompleteCommand) VariablesFromObject(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return c.VariablesFromString(s)
}

func (c *fakeCompleteCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeCompleteCommand) Send(context.Context) (*pb.CompleteJobResponse, error) {
	c.sent = true
	return &pb.CompleteJobResponse{}, c.sendErr
}

type fakeFailCommand struct {
	jobKey       int64
	retries      int32
	errorMessage string
	variables    string
	sent         bool
}

func (c *fakeFailCommand) JobKey(key int64) commands.FailJobCommandStep2 {
	c.jobKey = key
	return c
}

func (c *fakeFailCommand) Retries(retries int32) commands.FailJobCommandStep3 {
	c.retries = retries
	return c
}

func (c *fakeFailCommand) RetryBackoff(time.Duration) commands.FailJobCommandStep3 {
	return c
}

func (c *fakeFailCommand) ErrorMessage(msg string) commands.FailJobCommandStep3 {
	c.errorMessage = msg
	return c
}

func (c *fakeFailCommand) VariablesFromString(v string) (commands.DispatchFailJobCommand, error) {
	c.variables = v
	return c, nil
}

func (c *fakeFailCommand) VariablesFromStringer(v fmt.Stringer) (commands.DispatchFailJobCommand, error) {
	return c.VariablesFromString(v.String())
}

func (c *fakeFailCommand) VariablesFromMap(v map[string]interface{}) (commands.DispatchFailJobCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeFailCommand) VariablesFromObject(v interface{}) (commands.DispatchFailJobCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return c.VariablesFromString(s)
}

func (c *fakeFailCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchFailJobCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeFailCommand) Send(context.Context) (*pb.FailJobResponse, error) {
	c.sent = true
	return &pb.FailJobResponse{}, nil
}

type fakeThrowCommand struct {
	jobKey       int64
	errorCode    string
	errorMessage string
	variables    string
	sent         bool
}

func (c *fakeThrowCommand) JobKey(key int64) commands.ThrowErrorCommandStep2 {
	c.jobKey = key
	return c
}

func (c *fakeThrowCommand) ErrorCode(code string) commands.DispatchThrowErrorCommand {
	c.errorCode = code
	return c
}

func (c *fakeThrowCommand) ErrorMessage(msg string) commands.DispatchThrowErrorCommand {
	c.errorMessage = msg
	return c
}

func (c *fakeThrowCommand) VariablesFromString(v string) (commands.DispatchThrowErrorCommand, error) {
	c.variables = v
	return c, nil
}

func (c *fakeThrowCommand) VariablesFromStringer(v fmt.Stringer) (commands.DispatchThrowErrorCommand, error) {
	return c.VariablesFromString(v.String())
}

func (c *fakeThrowCommand) VariablesFromMap(v map[string]interface{}) (commands.DispatchThrowErrorCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeThrowCommand) VariablesFromObject(v interface{}) (commands.DispatchThrowErrorCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return c.VariablesFromString(s)
}

func (c *fakeThrowCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchThrowErrorCommand, error) {
	return c.VariablesFromObject(v)
}

func (c *fakeThrowCommand) Send(context.Context) (*pb.ThrowErrorResponse, error) {
	c.sent = true
	return &pb.ThrowErrorResponse{}, nil
}

func decodeVariables(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &vars))
	return vars
}

// ==========================
// Handle Tests
// ==========================

func TestHandler_Handle_CompletesJob(t *testing.T) {
	handler := createPipelineHandler(t)
	complete := &fakeCompleteCommand{}
	client := &MockJobClient{}
	client.On("NewCompleteJobCommand").Return(complete).Once()

	handler.Handle(client, createMockJob(101, createValidVariables()))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "NewFailJobCommand")
	client.AssertNotCalled(t, "NewThrowErrorCommand")

	require.True(t, complete.sent)
	assert.Equal(t, int64(101), complete.jobKey)
	vars := decodeVariables(t, complete.variables)
	assert.Len(t, vars, 3)
	assert.Equal(t, "High Risk", vars["riskLevel"])
	assert.Equal(t, 84.29, vars["percentage"])
	assert.InDelta(t, 0.8429045311145472, vars["probability"], 1e-12)
}

func TestHandler_Handle_CompleteSendFailureIsLogged(t *testing.T) {
	handler := createPipelineHandler(t)
	complete := &fakeCompleteCommand{sendErr: fmt.Errorf("gateway unavailable")}
	client := &MockJobClient{}
	client.On("NewCompleteJobCommand").Return(complete).Once()

	handler.Handle(client, createMockJob(102, createValidVariables()))

	assert.True(t, complete.sent)
	client.AssertNotCalled(t, "NewFailJobCommand")
}

func TestHandler_Handle_ThrowsBPMNErrorForClientErrors(t *testing.T) {
	unknown := createValidVariables()
	unknown["dietary_habits"] = "Others"

	invalid := createValidVariables()
	delete(invalid, "age")
	invalid["work_pressure"] = "high"

	tests := []struct {
		name      string
		variables map[string]interface{}
		code      errors.ErrorCode
		field     string
	}{
		{"unknown category", unknown, errors.ErrCodeUnknownCategory, "dietary_habits"},
		{"schema invalid", invalid, errors.ErrCodeValidationFailed, "age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createPipelineHandler(t)
			throw := &fakeThrowCommand{}
			client := &MockJobClient{}
			client.On("NewThrowErrorCommand").Return(throw).Once()

			handler.Handle(client, createMockJob(201, tt.variables))

			client.AssertExpectations(t)
			client.AssertNotCalled(t, "NewCompleteJobCommand")
			client.AssertNotCalled(t, "NewFailJobCommand")

			require.True(t, throw.sent)
			assert.Equal(t, int64(201), throw.jobKey)
			assert.Equal(t, string(tt.code), throw.errorCode)
			assert.NotEmpty(t, throw.errorMessage)

			vars := decodeVariables(t, throw.variables)
			assert.Equal(t, string(tt.code), vars["errorCode"])
			assert.Equal(t, false, vars["retryable"])

			fields, ok := vars["errorFields"].([]interface{})
			require.True(t, ok, "errorFields should be present")
			var names []string
			for _, f := range fields {
				names = append(names, f.(map[string]interface{})["field"].(string))
			}
			assert.Contains(t, names, tt.field)
		})
	}
}

func TestHandler_Handle_FailsJobOnScorerError(t *testing.T) {
	scorer := &MockScorer{}
	scorer.On("Score", *createValidInput()).Return(nil, fmt.Errorf("classifier exploded"))

	handler, err := NewHandler(HandlerOptions{
		Scorer:       scorer,
		CustomConfig: createValidConfig(),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	fail := &fakeFailCommand{}
	client := &MockJobClient{}
	client.On("NewFailJobCommand").Return(fail).Once()

	handler.Handle(client, createMockJob(301, createValidVariables()))

	scorer.AssertExpectations(t)
	client.AssertExpectations(t)
	client.AssertNotCalled(t, "NewCompleteJobCommand")
	client.AssertNotCalled(t, "NewThrowErrorCommand")

	require.True(t, fail.sent)
	assert.Equal(t, int64(301), fail.jobKey)
	assert.Equal(t, int32(0), fail.retries)
	assert.Contains(t, fail.errorMessage, string(errors.ErrCodeScoringFailed))
	assert.Contains(t, fail.errorMessage, "classifier exploded")

	vars := decodeVariables(t, fail.variables)
	assert.Equal(t, string(errors.ErrCodeScoringFailed), vars["errorCode"])
	assert.Equal(t, false, vars["retryable"])
}

func TestHandler_Handle_RetryableErrorDecrementsRetries(t *testing.T) {
	scorer := &MockScorer{}
	scorer.On("Score", mock.Anything).
		Return(nil, errors.NewArtifactFetchError("bundle", fmt.Errorf("connection refused")))

	handler, err := NewHandler(HandlerOptions{
		Scorer:       scorer,
		CustomConfig: createValidConfig(),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	fail := &fakeFailCommand{}
	client := &MockJobClient{}
	client.On("NewFailJobCommand").Return(fail).Once()

	handler.Handle(client, createMockJob(302, createValidVariables()))

	require.True(t, fail.sent)
	assert.Equal(t, int32(2), fail.retries)
	assert.Equal(t, true, decodeVariables(t, fail.variables)["retryable"])
}
