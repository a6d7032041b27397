package userlogout

import (
	"context"
	"net/http"
	"testing"

	apperrors "session-handlers/internal/common/errors"
	"session-handlers/internal/common/logger"
	"session-handlers/internal/session"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSessionCloser struct {
	mock.Mock
}

func (m *MockSessionCloser) Logout(ctx context.Context, userID, sessionID string) (*session.LogoutOutcome, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.LogoutOutcome), args.Error(1)
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockSessionCloser)
		wantStatus int
		wantBody   string
	}{
		{
			name: "session closed",
			body: `{"userId":"u-1","sessionId":"s-1"}`,
			setup: func(m *MockSessionCloser) {
				m.On("Logout", mock.Anything, "u-1", "s-1").Return(&session.LogoutOutcome{Result: session.SessionDeactivated}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Logout successful"}`,
		},
		{
			name: "unknown session is still a success",
			body: `{"userId":"u-1","sessionId":"nope"}`,
			setup: func(m *MockSessionCloser) {
				m.On("Logout", mock.Anything, "u-1", "nope").Return(&session.LogoutOutcome{Result: session.SessionUnknown}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Logout successful"}`,
		},
		{
			name: "user not found",
			body: `{"userId":"ghost","sessionId":"s-1"}`,
			setup: func(m *MockSessionCloser) {
				m.On("Logout", mock.Anything, "ghost", "s-1").Return(nil, apperrors.NewNotFoundError("User not found"))
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"success":false,"error":"User not found"}`,
		},
		{
			name:       "missing sessionId",
			body:       `{"userId":"u-1"}`,
			setup:      func(*MockSessionCloser) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"success":false,"error":"userId and sessionId are required"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &MockSessionCloser{}
			tt.setup(engine)
			h, err := NewHandler(DefaultConfig(), engine, logger.NewTestLogger(t))
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Body: tt.body})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.JSONEq(t, tt.wantBody, resp.Body)
			engine.AssertExpectations(t)
		})
	}
}
