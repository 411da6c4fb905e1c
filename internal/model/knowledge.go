package model

// Example is one few-shot email sample.
type Example struct {
	Industry  string `json:"industry" yaml:"industry"`
	EmailBody string `json:"email_body" yaml:"email_body"`
}

// Knowledge is the static, read-only context loaded once per run.
type Knowledge struct {
	Profile  string    `json:"profile"`
	Examples []Example `json:"examples"`
}
