package wizard

import (
	"github.com/charmbracelet/bubbles/textinput"
)

// State is the current step of the init wizard flow.
type State int

const (
	StateWelcome State = iota
	StateDatabaseType
	StateDetails
	StateSummary
	StateDone
	StateError
)

// Model holds the Bubble Tea state for the init wizard.
type Model struct {
	state State

	// Database type selection
	dbTypeIndex int

	// Input fields: environment name, database URL, baseline path
	inputs     []textinput.Model
	focusIndex int

	env    EnvironmentInput
	errors map[string]string

	result *InitResult
	err    error

	width  int
	height int
}

// EnvironmentInput holds user input for the environment being configured.
type EnvironmentInput struct {
	Name         string
	DatabaseType string // "mysql", "postgres"
	DatabaseURL  string
	BaselinePath string
}

// InitResult is the outcome of a completed wizard run.
type InitResult struct {
	ConfigPath       string
	EnvFilePath      string
	GitignoreUpdated bool
}

// DatabaseType is one selectable dialect.
type DatabaseType struct {
	ID          string
	DisplayName string
	Description string
}

var DatabaseTypes = []DatabaseType{
	{ID: "mysql", DisplayName: "MySQL", Description: "InnoDB-backed application databases"},
	{ID: "postgres", DisplayName: "PostgreSQL", Description: "includes statement syntax checking"},
}
