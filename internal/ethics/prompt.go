package ethics

import "fmt"

// BuildAuditPrompt constructs the per-item user prompt. The content is
// embedded verbatim between delimiters so audits are reproducible; no
// escaping is applied beyond what the transport requires.
func BuildAuditPrompt(content, contentType string) string {
	return fmt.Sprintf(`Please audit the following political %s for ethics/risk concerns:

---
%s
---

Provide a comprehensive ethics assessment using the rubric, returning only valid JSON.`, contentType, content)
}
