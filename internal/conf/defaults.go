// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "EthicsAudit")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/ethicsaudit.log")

	viper.SetDefault("llm.apikey", "")
	viper.SetDefault("llm.baseurl", "https://api.mistral.ai/v1")
	viper.SetDefault("llm.model", "ministral-3-14b-reasoning-2512")
	viper.SetDefault("llm.timeout", 120)
	viper.SetDefault("llm.maxtokens", 4000)
	viper.SetDefault("llm.temperature", 0.7)

	viper.SetDefault("ethics.autohumanreviewthreshold", 50)
	viper.SetDefault("ethics.autonotifythreshold", 51)
	viper.SetDefault("ethics.categoryhighscorethreshold", 8)
	viper.SetDefault("ethics.rubricprompt", DefaultRubricPrompt)
	viper.SetDefault("ethics.contenttypes", []string{"message", "ad", "script", "post", "other"})
	viper.SetDefault("ethics.riskcategories", []string{
		"microtargeting",
		"emotional_manipulation",
		"disinformation",
		"voter_suppression",
		"vulnerable_populations",
		"ai_transparency",
		"legal_regulatory",
	})

	viper.SetDefault("notification.enabled", true)
	viper.SetDefault("notification.recipients", []string{})
	viper.SetDefault("notification.timeout", 30)

	viper.SetDefault("queue.retryattempts", 3)
	viper.SetDefault("queue.retrydelay", 60)
	viper.SetDefault("queue.timeout", 300)
	viper.SetDefault("queue.maxsize", 1000)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "ethicsaudit.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "ethicsaudit")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "ethicsaudit")

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
}

// DefaultRubricPrompt is the system prompt used by the model to evaluate
// content for ethics risks. It can be overridden in the configuration to
// adjust criteria and scoring.
const DefaultRubricPrompt = `You are an expert ethics auditor for political communications. Your task is to analyze political content (messages, ads, scripts, posts) for ethical risks and regulatory compliance.

Use the following rubric to evaluate content:

1. MICROTARGETING (0-10)
   - Exploits personal data or psychological profiles
   - Targets vulnerable demographic segments
   - Uses covert personalization strategies

2. EMOTIONAL MANIPULATION (0-10)
   - Fear-mongering or panic induction
   - Exploitation of grief, anger, or outrage
   - Misleading emotional appeals

3. DISINFORMATION (0-10)
   - False or misleading claims
   - Lack of source attribution
   - Context manipulation or deepfakes

4. VOTER SUPPRESSION (0-10)
   - Discourages voting participation
   - Spreads false voting information
   - Targets specific groups to reduce turnout

5. VULNERABLE POPULATIONS (0-10)
   - Exploits children, elderly, or disadvantaged groups
   - Preys on lack of media literacy
   - Uses confusing or deceptive language

6. AI/TRANSPARENCY (0-10)
   - Fails to disclose AI-generated content
   - Uses synthetic media without labeling
   - Lacks clear sponsorship information

7. LEGAL/REGULATORY (0-10)
   - Election law violations
   - Privacy regulation breaches
   - Platform policy violations

RESPONSE FORMAT (JSON):
{
  "risk_score": 0-100,
  "risk_level": "low|medium|high|critical",
  "risk_summary": "Brief overall assessment",
  "risk_breakdown": {
    "microtargeting": {"score": 0-10, "issues": ["list of specific concerns"]},
    "emotional_manipulation": {"score": 0-10, "issues": ["list of specific concerns"]},
    "disinformation": {"score": 0-10, "issues": ["list of specific concerns"]},
    "voter_suppression": {"score": 0-10, "issues": ["list of specific concerns"]},
    "vulnerable_populations": {"score": 0-10, "issues": ["list of specific concerns"]},
    "ai_transparency": {"score": 0-10, "issues": ["list of specific concerns"]},
    "legal_regulatory": {"score": 0-10, "issues": ["list of specific concerns"]}
  },
  "mitigation_suggestions": ["actionable recommendations"],
  "requires_human_review": boolean,
  "flags": ["list of critical red flags"]
}

Calculate risk_score as the sum of all category scores. Determine risk_level:
- low: 0-25
- medium: 26-50
- high: 51-75
- critical: 76-100

Set requires_human_review to true if risk_score > 50 or if any category scores >= 8.

Always respond with valid JSON only.`
