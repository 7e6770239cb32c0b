package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"

	"github.com/amishk599/jobsieve/internal/model"
)

// LLMComparator implements model.Comparator by asking an LLM to score a
// posting against a resume.
type LLMComparator struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

var _ model.Comparator = (*LLMComparator)(nil)

// NewLLMComparator creates a comparator. tmpl is usually ResumeMatchTemplate.
func NewLLMComparator(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMComparator {
	return &LLMComparator{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// Compare returns a fully populated Analysis or an error. Replies that do not
// match the expected shape yield a *model.SchemaError; HTTP and network
// failures come back from the provider as *model.TransportError.
func (c *LLMComparator) Compare(ctx context.Context, jobText, resumeText string) (*model.Analysis, error) {
	var promptBuf bytes.Buffer
	if err := c.tmpl.Execute(&promptBuf, promptData{
		Resume:         resumeText,
		JobDescription: jobText,
	}); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := c.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		c.logger.Debug("rejected llm reply", "raw", raw, "error", err)
		return nil, &model.SchemaError{Raw: raw, Err: err}
	}
	return analysis, nil
}

// rawAnalysis uses pointers so a missing or null key can be told apart from a
// zero value. The score stays raw so a quoted number can be rejected.
type rawAnalysis struct {
	JobTitle        *string         `json:"job_title"`
	CompanyName     *string         `json:"company_name"`
	MatchScore      json.RawMessage `json:"match_score_10"`
	KeyStrengths    *[]string       `json:"key_strengths"`
	PotentialGaps   *[]string       `json:"potential_gaps"`
	SummaryForEmail *string         `json:"summary_for_email"`
	KeywordsToAdd   *[]string       `json:"keywords_to_add"`
}

// parseAnalysis decodes and validates the model's JSON object. Keys beyond the
// seven expected ones are ignored.
func parseAnalysis(raw string) (*model.Analysis, error) {
	var ra rawAnalysis
	if err := json.Unmarshal([]byte(raw), &ra); err != nil {
		return nil, fmt.Errorf("unmarshal analysis JSON: %w", err)
	}

	var missing []string
	if ra.JobTitle == nil {
		missing = append(missing, "job_title")
	}
	if ra.CompanyName == nil {
		missing = append(missing, "company_name")
	}
	if len(ra.MatchScore) == 0 || string(ra.MatchScore) == "null" {
		missing = append(missing, "match_score_10")
	}
	if ra.KeyStrengths == nil {
		missing = append(missing, "key_strengths")
	}
	if ra.PotentialGaps == nil {
		missing = append(missing, "potential_gaps")
	}
	if ra.SummaryForEmail == nil {
		missing = append(missing, "summary_for_email")
	}
	if ra.KeywordsToAdd == nil {
		missing = append(missing, "keywords_to_add")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing or null keys: %s", strings.Join(missing, ", "))
	}

	score, err := parseScore(ra.MatchScore)
	if err != nil {
		return nil, err
	}

	lists := []struct {
		key   string
		items []string
	}{
		{"key_strengths", *ra.KeyStrengths},
		{"potential_gaps", *ra.PotentialGaps},
		{"keywords_to_add", *ra.KeywordsToAdd},
	}
	for _, l := range lists {
		for i, it := range l.items {
			// A null element decodes to "".
			if strings.TrimSpace(it) == "" {
				return nil, fmt.Errorf("%s[%d] is null or blank", l.key, i)
			}
		}
	}

	a := &model.Analysis{
		JobTitle:        strings.TrimSpace(*ra.JobTitle),
		CompanyName:     strings.TrimSpace(*ra.CompanyName),
		MatchScore:      score,
		KeyStrengths:    *ra.KeyStrengths,
		PotentialGaps:   *ra.PotentialGaps,
		SummaryForEmail: strings.TrimSpace(*ra.SummaryForEmail),
		KeywordsToAdd:   *ra.KeywordsToAdd,
	}

	switch {
	case a.JobTitle == "":
		return nil, errors.New("job_title is empty")
	case a.CompanyName == "":
		return nil, errors.New("company_name is empty")
	case a.SummaryForEmail == "":
		return nil, errors.New("summary_for_email is empty")
	}

	return a, nil
}

// parseScore accepts JSON numbers that are integers or integral floats (7.0)
// in [0, 10]. Quoted numbers are rejected.
func parseScore(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("match_score_10 %s is not a JSON number", raw)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("match_score_10 %v is not an integer", f)
	}
	if f < 0 || f > 10 {
		return 0, fmt.Errorf("match_score_10 %v is outside 0..10", f)
	}
	return int(f), nil
}
