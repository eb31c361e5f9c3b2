package router

import (
	"fmt"

	"minirpc/rpcerr"
)

func errRouteMiss(path string) error {
	return fmt.Errorf("%w: no route matches %q", rpcerr.ErrRouteMiss, path)
}
