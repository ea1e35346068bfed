package seed

import _ "embed"

//go:embed fixtures.yml
var Fixtures []byte
