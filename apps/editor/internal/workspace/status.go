package workspace

// Status is the outcome of the last controller operation: one of Idle,
// Loading, Succeeded or Failed.
type Status interface {
	Kind() string
	isStatus()
}

// Idle means nothing is in flight and nothing needs reporting.
type Idle struct{}

// Loading means a remote operation is in flight.
type Loading struct {
	Op string
}

// Succeeded carries the URL to show after a successful write.
type Succeeded struct {
	URL string
}

// Failed carries the message to show the user.
type Failed struct {
	Message string
}

func (Idle) Kind() string      { return "idle" }
func (Loading) Kind() string   { return "loading" }
func (Succeeded) Kind() string { return "success" }
func (Failed) Kind() string    { return "error" }

func (Idle) isStatus()      {}
func (Loading) isStatus()   {}
func (Succeeded) isStatus() {}
func (Failed) isStatus()    {}
