package survival

import "github.com/rotisserie/eris"

var (
	//ErrInvalidConfig marks fatal configuration problems detected before any estimation.
	ErrInvalidConfig = eris.New("invalid configuration")
	//ErrInvalidArgument marks caller errors such as empty inputs where data is required.
	ErrInvalidArgument = eris.New("invalid argument")
)
