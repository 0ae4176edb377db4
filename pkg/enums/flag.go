package enums

// Flag is a tri-state boolean used on business case details. FALSE_DONT_UPDATE marks a
// value that was defaulted and must not overwrite a stored value.
type Flag string

const (
	FlagTrue            Flag = "TRUE"
	FlagFalse           Flag = "FALSE"
	FlagFalseDontUpdate Flag = "FALSE_DONT_UPDATE"
)

func (f Flag) ToBool() bool {
	return f == FlagTrue
}

// FlagOf converts a plain boolean.
func FlagOf(value bool) Flag {
	if value {
		return FlagTrue
	}
	return FlagFalse
}
