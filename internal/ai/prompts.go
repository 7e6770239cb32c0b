package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/resume_match.md
var resumeMatchPromptRaw string

// ResumeMatchTemplate is the parsed prompt comparing a posting with a resume.
// It expects a promptData value.
var ResumeMatchTemplate = template.Must(template.New("resume_match").Parse(resumeMatchPromptRaw))

type promptData struct {
	Resume         string
	JobDescription string
}
