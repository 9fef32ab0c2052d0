package tracing

// Span names.
const (
	// SpanProject wraps one output write by the projector.
	SpanProject = "registration.project"
	// SpanEvaluate wraps a synchronous settled-state evaluation.
	SpanEvaluate = "registration.evaluate"
)

// Attribute keys.
const (
	AttrSessionID     = "session.id"
	AttrOutput        = "output"
	AttrUsernameValid = "username.valid"
	AttrStatus        = "password.status"
	AttrLevel         = "password.level"
	AttrFormValid     = "form.valid"
	AttrSource        = "source"
)
