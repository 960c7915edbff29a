package config

const SourceFileExt = ".mr"

// SourceFileExtensions are all recognized source file extensions.
var SourceFileExtensions = []string{".mr", ".mirra"}

// IsTestMode indicates if the program is running in test mode.
// Set once at startup when handling the test command.
var IsTestMode = false

// ProjectFileName is the optional per-project manifest.
const ProjectFileName = "mirra.yaml"

// Built-in class names. These classes are pre-registered in every Registry
// so that primitive values and meta-objects have ordinary class-based types.
const (
	IntClassName    = "Int"
	BoolClassName   = "Bool"
	StringClassName = "String"
	NilClassName    = "Nil"

	ClassClassName  = "Class"
	MethodClassName = "Method"
	FieldClassName  = "Field"
)

// ConstructorName is the method name constructor dispatch looks for.
const ConstructorName = "new"
