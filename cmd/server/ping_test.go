package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func (s *ServerTestSuite) Test_Ping() {
	tests := []struct {
		name           string
		auth           *clientAuth
		bodyTester     func(t *testing.T, body map[string]any)
		expectedStatus int
	}{
		{
			name:           "Valid",
			auth:           graderAuth,
			expectedStatus: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "ready", body["status"], "should be ready")
			},
		},
		{
			name:           "PingOnly",
			auth:           pingAuth,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "NoAuth",
			expectedStatus: http.StatusUnauthorized,
			bodyTester:     unauthorizedBodyTester,
		},
		{
			name:           "WrongToken",
			auth:           wrongAuth,
			expectedStatus: http.StatusUnauthorized,
			bodyTester:     unauthorizedBodyTester,
		},
		{
			name:           "Inactive",
			auth:           inactiveAuth,
			expectedStatus: http.StatusUnauthorized,
			bodyTester:     unauthorizedBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			r, err := doRequest(s.T(), s.newRequest(http.MethodGet, "/v1/ping/", tt.auth, ""))
			s.Require().NoError(err)

			s.Equal(tt.expectedStatus, r.code, "incorrect status code")

			if tt.bodyTester != nil {
				var body map[string]any
				s.Require().NoError(json.Unmarshal([]byte(r.body), &body), "failed to parse body")
				tt.bodyTester(s.T(), body)
			}
		})
	}
}
