// Package verovio calls the Verovio engraving toolkit through its C
// interface, loaded at run time with libffi.
//
// A Toolkit serializes the calls made on it. Distinct toolkits may be used
// from different goroutines, but the toolkit's logging state is global to
// the process, see InstallLogInterceptor.
package verovio

//go:generate go run .. mirror -version 4.2.0 -I ../testdata/verovio/4.2.0/include -package verovio -o constants_gen.go
