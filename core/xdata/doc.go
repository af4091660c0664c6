// Package xdata packages diagnostic context for errors.
//
// A Data value holds a detail map, which always carries a creation time and
// an id, and optionally the error that preceded it: its type, its arguments
// and the stack frames captured when it was raised. Errors produced by pyro
// packages are *Error values built with New, so the context travels with the
// error and survives wrapping:
//
//	err := xdata.New(ErrTypeNotFound, "factory-type-fail", nil, "type", "Dog", "path", "zoo.Dog")
//	var xe *xdata.Error
//	if errors.As(err, &xe) {
//	    out, _ := xe.JSON(true)
//	    fmt.Println(string(out))
//	}
package xdata
