package ledger

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codePrefix is the fixed prefix of public booking identifiers.  The
// full code is the prefix followed by eight random digits, e.g.
// "NRC48215973".
const codePrefix = "NRC"

// randomCode draws one candidate booking code.  crypto/rand keeps
// codes unguessable even though they are shared over email.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%08d", codePrefix, n.Int64()+10000000), nil
}

// AllocateCode draws booking code candidates until exists reports the
// candidate as unused.  With an eight-digit keyspace collisions are
// rare and the loop is expected to finish on the first draw; a
// collision triggers a redraw rather than a failure.
func AllocateCode(exists func(code string) (bool, error)) (string, error) {
	for {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		used, err := exists(code)
		if err != nil {
			return "", err
		}
		if !used {
			return code, nil
		}
	}
}
