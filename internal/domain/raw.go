package domain

// RawVariable is one row of the raw extraction output, before availability
// is computed. Readers degrade malformed values to defaults and record the
// affected column names in Defaulted.
type RawVariable struct {
	Zone         string `json:"zone"`
	Station      string `json:"station"`
	Sensor       string `json:"sensor"`
	Variable     string `json:"variable"`
	Frequency    string `json:"frequency"`
	DataCorrect  int    `json:"data_correct"`
	DataError    int    `json:"data_error"`
	DataExpected *int   `json:"data_expected,omitempty"` // nil when the source left it blank

	Defaulted []string `json:"-"`
}
