package results

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/results",
)

// Artifact the grading container writes into the results mount
const ArtifactName = "results.json"

// Value of grading.results_schema selecting the bundled schema
const BuiltinSchema = "builtin"

//go:embed results.schema.json
var builtinSchema string

// Parsed results artifact. Payload is the artifact as written by the container.
type GradingResult struct {
	Payload json.RawMessage
	// Populated when the payload follows the standard results shape
	Summary *Summary
}

type TestResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Summary struct {
	OverallScore *float64     `json:"overallScore"`
	Tests        []TestResult `json:"tests"`
	Error        *string      `json:"error"`
}

func (s *Summary) Passed() int {
	passed := 0
	for _, t := range s.Tests {
		if t.Status == "passed" {
			passed++
		}
	}

	return passed
}

type Interpreter struct {
	schema   *jsonschema.Schema
	maxBytes int64
}

// maxBytes bounds the artifact size, schema may be nil
func NewInterpreter(maxBytes int64, schema *jsonschema.Schema) *Interpreter {
	return &Interpreter{
		schema:   schema,
		maxBytes: maxBytes,
	}
}

// Compiles the schema named by grading.results_schema: BuiltinSchema or a file path
func LoadSchema(ref string) (*jsonschema.Schema, error) {
	if ref == BuiltinSchema {
		return jsonschema.CompileString(ArtifactName, builtinSchema)
	}

	schema, err := jsonschema.Compile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to compile results schema %s: %w", ref, err)
	}

	return schema, nil
}

func (i *Interpreter) Read(ctx context.Context, resultsDir string) (*GradingResult, error) {
	_, span := tracer.Start(ctx, "Interpreter.Read", trace.WithAttributes(
		attribute.Bool("schema", i.schema != nil),
	))
	defer span.End()

	data, err := i.readArtifact(filepath.Join(resultsDir, ArtifactName))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read results artifact")
		return nil, err
	}
	span.SetAttributes(attribute.Int("size", len(data)))

	if !json.Valid(data) {
		err = workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, errors.New("invalid JSON"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "results artifact is not JSON")
		return nil, err
	}

	if i.schema != nil {
		if err := i.validate(data); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "results artifact failed schema validation")
			return nil, err
		}
	}

	result := &GradingResult{Payload: json.RawMessage(data)}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err == nil && (summary.OverallScore != nil || summary.Error != nil) {
		result.Summary = &summary
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read results artifact")
	return result, nil
}

func (i *Interpreter) readArtifact(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, workererrors.JobErrorWrap(workererrors.ErrResultsArtifactMissing, err)
	}
	if err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, err)
	}
	if !info.Mode().IsRegular() {
		return nil, workererrors.JobErrorWrap(
			workererrors.ErrResultsArtifactCorrupt,
			fmt.Errorf("%s is not a regular file", ArtifactName),
		)
	}

	data, err := io.ReadAll(io.LimitReader(f, i.maxBytes+1))
	if err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, workererrors.JobErrorWrap(
			workererrors.ErrResultsArtifactCorrupt,
			fmt.Errorf("%s larger than %d bytes", ArtifactName, i.maxBytes),
		)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, workererrors.JobErrorWrap(
			workererrors.ErrResultsArtifactCorrupt,
			fmt.Errorf("%s is empty", ArtifactName),
		)
	}

	return data, nil
}

func (i *Interpreter) validate(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, err)
	}

	err := i.schema.Validate(doc)
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return workererrors.JobErrorWrap(
			workererrors.ErrResultsArtifactCorrupt,
			&SchemaError{Fields: schemaFields(validationErr)},
		)
	} else if err != nil {
		return workererrors.JobErrorWrap(workererrors.ErrResultsArtifactCorrupt, err)
	}

	return nil
}

// Schema violations keyed by keyword location
type SchemaError struct {
	Fields map[string]string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("results artifact violates schema (%d errors)", len(e.Fields))
}

func schemaFields(err *jsonschema.ValidationError) map[string]string {
	errs := err.BasicOutput().Errors
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		if e.Error == "" {
			continue
		}
		fields[e.KeywordLocation] = e.Error
	}

	return fields
}
