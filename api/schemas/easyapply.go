package schemas

// Job identifies a single posting to apply to. Title, Company and Link are
// caller-supplied; Description and DetectedLanguage are filled in during a
// single Apply pass and never overwritten afterwards.
type Job struct {
	ID               string `json:"id" yaml:"id"`
	Title            string `json:"title" yaml:"title"`
	Company          string `json:"company" yaml:"company"`
	Link             string `json:"link" yaml:"link"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	DetectedLanguage string `json:"detected_language,omitempty" yaml:"detected_language,omitempty"`
}

// SavedAnswer is one previously recorded question/answer pair. The engine
// only consumes these; persisting them is the caller's job via the recorder
// callback.
type SavedAnswer struct {
	QuestionType string `json:"question_type" yaml:"question_type"`
	QuestionText string `json:"question_text" yaml:"question_text"`
	Answer       string `json:"answer" yaml:"answer"`
}

// ModalState classifies the application dialog at one instant. It is always
// recomputed from the live DOM; the dialog can change shape between reads so
// a cached state would immediately go stale.
type ModalState string

const (
	StateForm    ModalState = "form"
	StateReview  ModalState = "review"
	StateSubmit  ModalState = "submit"
	StateSuccess ModalState = "success"
	StateError   ModalState = "error"
	StateClosed  ModalState = "closed"
	StateUnknown ModalState = "unknown"
)

// ClickResult reports the outcome of one primary-button click.
type ClickResult struct {
	Success   bool
	Submitted bool
	Err       string
}

// PageResult aggregates one page-fill pass.
type PageResult struct {
	Success         bool
	FieldsProcessed int
	FieldsFailed    int
	Errors          []string
}

// EasyApplyResult accumulates the outcome of a single Apply call. It is
// created at the start, mutated throughout and returned exactly once;
// AlreadyApplied and LanguageSkipped are deliberate no-ops, not failures.
type EasyApplyResult struct {
	Success          bool   `json:"success"`
	AlreadyApplied   bool   `json:"already_applied"`
	LanguageSkipped  bool   `json:"language_skipped"`
	DetectedLanguage string `json:"detected_language,omitempty"`
	PagesCompleted   int    `json:"pages_completed"`
	TotalFields      int    `json:"total_fields"`
	FailedFields     int    `json:"failed_fields"`
	Error            string `json:"error,omitempty"`
}

// Rect is the geometry of a discovered section, rounded to whole pixels.
// Position plus size acts as the section's identity when the same element is
// matched by more than one structural selector.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Key returns the geometric identity used for section de-duplication.
func (r Rect) Key() [4]int { return [4]int{r.X, r.Y, r.Width, r.Height} }

// Section is one logical field section (label + control) discovered on the
// current form page. The capability flags are computed in-page by the
// discovery script; handlers route on them without re-querying the DOM.
type Section struct {
	Selector      string   `json:"selector"`
	Label         string   `json:"label"`
	Required      bool     `json:"required"`
	HasFile       bool     `json:"hasFile"`
	HasRadio      bool     `json:"hasRadio"`
	HasSelect     bool     `json:"hasSelect"`
	HasCheckbox   bool     `json:"hasCheckbox"`
	IsTypeahead   bool     `json:"isTypeahead"`
	IsDate        bool     `json:"isDate"`
	HasTextarea   bool     `json:"hasTextarea"`
	HasTextInput  bool     `json:"hasTextInput"`
	InputSelector string   `json:"inputSelector"`
	Options       []string `json:"options"`
	Rect          Rect     `json:"rect"`
}

// ResumeArtifact is the on-disk triple produced by the tailoring pipeline.
// ScoresPath is optional; YAMLPath and PDFPath are always set on success.
type ResumeArtifact struct {
	YAMLPath   string
	PDFPath    string
	ScoresPath string
}

// Activity names form the fixed vocabulary shared by the status sink and
// structured logs.
const (
	ActivityNavigatingToJob       = "navigating_to_job"
	ActivityExtractingDescription = "extracting_description"
	ActivityDetectingLanguage     = "detecting_language"
	ActivityTailoringResume       = "tailoring_resume"
	ActivityOpeningApplication    = "opening_application"
	ActivityFillingForm           = "filling_form"
	ActivitySubmittingApplication = "submitting_application"
	ActivityApplicationSubmitted  = "application_submitted"
	ActivityApplicationFailed     = "application_failed"
	ActivitySkippingJob           = "skipping_job"
)
