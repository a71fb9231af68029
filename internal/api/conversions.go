package api

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/flake-triage/internal/models"
	"github.com/miradorstack/flake-triage/internal/utils"
)

// FromStructTestRun maps a Triage request into a domain TestRun.
func FromStructTestRun(req *structpb.Struct) (models.TestRun, error) {
	if req == nil {
		return models.TestRun{}, fmt.Errorf("request is nil")
	}
	f := fields(req.GetFields())

	run := models.TestRun{}
	var err error
	if run.RunID, err = f.str("run_id"); err != nil {
		return models.TestRun{}, err
	}
	if run.Project, err = f.str("project"); err != nil {
		return models.TestRun{}, err
	}
	if strings.TrimSpace(run.Project) == "" {
		return models.TestRun{}, fmt.Errorf("project is required")
	}
	if run.Sequence, err = f.integer("sequence"); err != nil {
		return models.TestRun{}, err
	}
	if run.Notify, err = f.boolean("notify"); err != nil {
		return models.TestRun{}, err
	}
	startedAt, err := f.str("started_at")
	if err != nil {
		return models.TestRun{}, err
	}
	if run.StartedAt, err = utils.ParseTimestamp(startedAt); err != nil {
		return models.TestRun{}, fmt.Errorf("started_at: %w", err)
	}

	tests, err := f.list("tests")
	if err != nil {
		return models.TestRun{}, err
	}
	for i, item := range tests {
		entry := item.GetStructValue()
		if entry == nil {
			return models.TestRun{}, fmt.Errorf("tests[%d] must be an object", i)
		}
		res, err := fromStructTestResult(entry)
		if err != nil {
			return models.TestRun{}, fmt.Errorf("tests[%d]: %w", i, err)
		}
		run.Results = append(run.Results, res)
	}
	return run, nil
}

func fromStructTestResult(entry *structpb.Struct) (models.TestResult, error) {
	f := fields(entry.GetFields())
	pkg, err := f.str("package")
	if err != nil {
		return models.TestResult{}, err
	}
	name, err := f.str("name")
	if err != nil {
		return models.TestResult{}, err
	}
	if strings.TrimSpace(name) == "" {
		return models.TestResult{}, fmt.Errorf("name is required")
	}
	outcome, err := f.str("outcome")
	if err != nil {
		return models.TestResult{}, err
	}
	elapsed, err := f.num("elapsed_seconds")
	if err != nil {
		return models.TestResult{}, err
	}
	return models.TestResult{
		Package: pkg,
		Name:    name,
		Outcome: models.ParseOutcome(outcome),
		Elapsed: time.Duration(elapsed * float64(time.Second)),
	}, nil
}

// ToStructReport converts a report into its Struct representation, using the report's JSON
// field names.
func ToStructReport(report models.TriageReport) (*structpb.Struct, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert report: %w", err)
	}
	return out, nil
}

// FromStructReport reverses ToStructReport.
func FromStructReport(in *structpb.Struct) (models.TriageReport, error) {
	if in == nil {
		return models.TriageReport{}, fmt.Errorf("report is nil")
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return models.TriageReport{}, fmt.Errorf("marshal report: %w", err)
	}
	var report models.TriageReport
	if err := json.Unmarshal(data, &report); err != nil {
		return models.TriageReport{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

// FromStructExplainRequest maps an ExplainTest request.
func FromStructExplainRequest(req *structpb.Struct) (models.ExplainRequest, error) {
	if req == nil {
		return models.ExplainRequest{}, fmt.Errorf("request is nil")
	}
	f := fields(req.GetFields())
	var (
		out models.ExplainRequest
		err error
	)
	if out.Project, err = f.str("project"); err != nil {
		return models.ExplainRequest{}, err
	}
	if out.Package, err = f.str("package"); err != nil {
		return models.ExplainRequest{}, err
	}
	if out.Test, err = f.str("test"); err != nil {
		return models.ExplainRequest{}, err
	}
	if strings.TrimSpace(out.Test) == "" {
		return models.ExplainRequest{}, fmt.Errorf("test is required")
	}
	failing, err := f.list("failing")
	if err != nil {
		return models.ExplainRequest{}, err
	}
	for i, item := range failing {
		name, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return models.ExplainRequest{}, fmt.Errorf("failing[%d] must be a string", i)
		}
		out.Failing = append(out.Failing, name.StringValue)
	}
	return out, nil
}

// ToStructExplainResponse builds the ExplainTest response.
func ToStructExplainResponse(req models.ExplainRequest, knownFlaky bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"package":     structpb.NewStringValue(req.Package),
		"test":        structpb.NewStringValue(req.Test),
		"known_flaky": structpb.NewBoolValue(knownFlaky),
	}}
}

// FromStructReportID extracts the report id of a GetReport request.
func FromStructReportID(req *structpb.Struct) (string, error) {
	if req == nil {
		return "", fmt.Errorf("request is nil")
	}
	id, err := fields(req.GetFields()).str("report_id")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("report_id is required")
	}
	return id, nil
}

// FromStructStaleIssuesRequest maps a CloseStaleIssues request.
func FromStructStaleIssuesRequest(req *structpb.Struct) (models.StaleIssuesRequest, error) {
	if req == nil {
		return models.StaleIssuesRequest{}, fmt.Errorf("request is nil")
	}
	f := fields(req.GetFields())
	project, err := f.str("project")
	if err != nil {
		return models.StaleIssuesRequest{}, err
	}
	dryRun, err := f.boolean("dry_run")
	if err != nil {
		return models.StaleIssuesRequest{}, err
	}
	return models.StaleIssuesRequest{Project: project, DryRun: dryRun}, nil
}

// ToStructStaleIssuesResult builds the CloseStaleIssues response.
func ToStructStaleIssuesResult(res models.StaleIssuesResult) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"examined": structpb.NewNumberValue(float64(res.Examined)),
		"closed":   stringList(res.Closed),
		"errors":   stringList(res.Errors),
		"dry_run":  structpb.NewBoolValue(res.DryRun),
	}}
}

func stringList(values []string) *structpb.Value {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(values))}
	for _, v := range values {
		list.Values = append(list.Values, structpb.NewStringValue(v))
	}
	return structpb.NewListValue(list)
}

// fields reads typed values out of a Struct. Absent and null fields yield zero values.
type fields map[string]*structpb.Value

func (f fields) lookup(key string) (*structpb.Value, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null || v.GetKind() == nil {
		return nil, false
	}
	return v, true
}

func (f fields) str(key string) (string, error) {
	v, ok := f.lookup(key)
	if !ok {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s.StringValue, nil
}

func (f fields) num(key string) (float64, error) {
	v, ok := f.lookup(key)
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return n.NumberValue, nil
}

func (f fields) integer(key string) (int64, error) {
	n, err := f.num(key)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return int64(n), nil
}

func (f fields) boolean(key string) (bool, error) {
	v, ok := f.lookup(key)
	if !ok {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b.BoolValue, nil
}

func (f fields) list(key string) ([]*structpb.Value, error) {
	v, ok := f.lookup(key)
	if !ok {
		return nil, nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	return l.ListValue.GetValues(), nil
}
