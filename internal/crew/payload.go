package crew

// IsDetailedAnalysis reports whether a normalized payload has the detailed
// resume-analysis shape: both analysis_metadata and resume_analysis present.
// The check is structural and presence-only; the HTTP layer uses it to
// decide whether to spread the payload at the top level of its response or
// nest it under an "analysis" key.
func IsDetailedAnalysis(payload map[string]any) bool {
	_, hasMeta := payload["analysis_metadata"]
	_, hasResume := payload["resume_analysis"]
	return hasMeta && hasResume
}
