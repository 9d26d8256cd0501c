package cmdtest

import (
	"testing"
)

func TestMain(m *testing.M) {
	Main(m)
}

func TestWgslinc(t *testing.T) {
	Run(t, "testdata/wgslinc")
}
