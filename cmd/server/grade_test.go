package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/classgrade/autograder/cmd/server/internal/middleware"
	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/results"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

const gradedPayload = `{"overallScore":80,"tests":[{"name":"add","status":"passed"},{"name":"sub","status":"failed","message":"expected 1"}]}`

func gradeBody(studentCode, testingPath, language string) string {
	body := map[string]string{"studentCode": studentCode, "testingPath": testingPath}
	if language != "" {
		body["language"] = language
	}

	encoded, _ := json.Marshal(body)
	return string(encoded)
}

func graded(_ context.Context, _ grader.Request) (*results.GradingResult, error) {
	return &results.GradingResult{Payload: json.RawMessage(gradedPayload)}, nil
}

func (s *ServerTestSuite) Test_Grade() {
	tests := []struct {
		name           string
		auth           *clientAuth
		body           string
		setup          func()
		bodyTester     func(t *testing.T, body map[string]any)
		expectedStatus int
	}{
		{
			name: "Valid",
			auth: graderAuth,
			body: gradeBody("public class Solution {}", "lab1/SolutionTest.java", ""),
			setup: func() {
				s.grader.EXPECT().
					Grade(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req grader.Request) (*results.GradingResult, error) {
						s.Equal("java", req.Profile.Name, "default profile should be used")
						s.Equal("Solution.java", req.Profile.Filename, "wrong filename")
						s.Equal("lab1/SolutionTest.java", req.TestingPath, "wrong testing path")
						s.Equal("public class Solution {}", req.StudentCode, "wrong student code")
						s.NotEmpty(req.JobID, "job id should be assigned")
						s.Require().NotNil(req.APIKeyID, "api key id should be recorded")
						s.Equal("grader", *req.APIKeyID, "wrong api key id")
						return graded(ctx, req)
					}).
					Times(1)
			},
			expectedStatus: http.StatusOK,
			bodyTester: func(t *testing.T, body map[string]any) {
				assert.InDelta(t, 80.0, body["overallScore"], 0.001, "payload should pass through")
				assert.Len(t, body["tests"], 2, "payload should pass through")
			},
		},
		{
			name: "ExplicitLanguage",
			auth: graderAuth,
			body: gradeBody("print(1)", "lab1/test_solution.py", "Python"),
			setup: func() {
				s.grader.EXPECT().
					Grade(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req grader.Request) (*results.GradingResult, error) {
						s.Equal("python", req.Profile.Name, "explicit language should be used")
						s.Equal("grader-python:1", req.Profile.Image, "wrong image")
						return graded(ctx, req)
					}).
					Times(1)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "DetectedLanguage",
			auth: graderAuth,
			body: gradeBody("#!/usr/bin/env python3\nprint(1)\n", "lab1/tests.zip", ""),
			setup: func() {
				s.grader.EXPECT().
					Grade(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, req grader.Request) (*results.GradingResult, error) {
						s.Equal("python", req.Profile.Name, "language should be detected from the shebang")
						return graded(ctx, req)
					}).
					Times(1)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "UnknownLanguage",
			auth:           graderAuth,
			body:           gradeBody("x", "lab1/test", "cobol"),
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusBadRequest,
			bodyTester:     assertErrorBodyWithFields,
		},
		{
			name:           "MissingStudentCode",
			auth:           graderAuth,
			body:           `{"testingPath":"lab1/test"}`,
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusBadRequest,
			bodyTester:     assertErrorBodyWithFields,
		},
		{
			name:           "MissingTestingPath",
			auth:           graderAuth,
			body:           `{"studentCode":"x"}`,
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusBadRequest,
			bodyTester:     assertErrorBodyWithFields,
		},
		{
			name:           "DirectoryTestingPath",
			auth:           graderAuth,
			body:           gradeBody("x", "lab1/", ""),
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusBadRequest,
			bodyTester:     assertErrorBodyWithFields,
		},
		{
			name:           "MalformedJSON",
			auth:           graderAuth,
			body:           `{"studentCode":`,
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "NoAuth",
			body:           gradeBody("x", "lab1/test", ""),
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusUnauthorized,
			bodyTester:     unauthorizedBodyTester,
		},
		{
			name:           "MissingPermission",
			auth:           pingAuth,
			body:           gradeBody("x", "lab1/test", ""),
			setup:          func() { s.grader.EXPECT().Grade(gomock.Any(), gomock.Any()).Times(0) },
			expectedStatus: http.StatusForbidden,
			bodyTester:     forbiddenBodyTester,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			tt.setup()

			r, err := doRequest(s.T(), s.newRequest(http.MethodPost, "/v1/grade/", tt.auth, tt.body))
			s.Require().NoError(err)

			s.Equal(tt.expectedStatus, r.code, "incorrect status code: %s", r.body)

			if tt.bodyTester != nil {
				var body map[string]any
				s.Require().NoError(json.Unmarshal([]byte(r.body), &body), "failed to parse body")
				tt.bodyTester(s.T(), body)
			}
		})
	}
}

func (s *ServerTestSuite) Test_GradeFailures() {
	tests := []struct {
		kind           error
		message        string
		details        string
		expectedStatus int
	}{
		{
			kind:           workererrors.ErrTestMaterialFetch,
			message:        "test material could not be fetched",
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			kind:           workererrors.ErrTestMaterialExtract,
			message:        "test material archive could not be extracted",
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			kind:           workererrors.ErrContainerTimeout,
			message:        "grading timed out",
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			kind:           workererrors.ErrContainerLaunch,
			message:        "grading runtime could not be started",
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			kind:           workererrors.ErrAdmissionRejected,
			message:        "grader is at capacity",
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			kind:           workererrors.ErrResultsArtifactMissing,
			message:        "Grading failed on the server.",
			details:        "grading container produced no results",
			expectedStatus: http.StatusInternalServerError,
		},
		{
			kind:           workererrors.ErrResultsArtifactCorrupt,
			message:        "Grading failed on the server.",
			details:        "grading container produced malformed results",
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		s.Run(workererrors.KindName(workererrors.JobErrorWrap(tt.kind, nil)), func() {
			s.grader.EXPECT().
				Grade(gomock.Any(), gomock.Any()).
				Return(nil, workererrors.JobErrorWithOutput(
					tt.kind,
					errors.New("open /tmp/autograder-1234/results/results.json: no such file"),
					&workererrors.Output{Stderr: []byte("Exception in thread main"), ExitCode: 1},
				)).
				Times(1)

			r, err := doRequest(
				s.T(),
				s.newRequest(http.MethodPost, "/v1/grade/", graderAuth, gradeBody("x", "lab1/test", "")),
			)
			s.Require().NoError(err)

			s.Equal(tt.expectedStatus, r.code, "incorrect status code")
			s.NotEmpty(r.header.Get(middleware.JobIDHeader), "job id should be returned")
			s.False(strings.Contains(r.body, "/tmp"), "paths must not leak")
			s.False(strings.Contains(r.body, "Exception"), "stderr must not leak")

			var body map[string]any
			s.Require().NoError(json.Unmarshal([]byte(r.body), &body), "failed to parse body")
			s.Equal(tt.message, body["error"], "wrong error message")
			if tt.details != "" {
				s.Equal(tt.details, body["details"], "wrong details")
			} else {
				s.NotContains(body, "details", "details only for results failures")
			}
		})
	}
}
