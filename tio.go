// Package tio provides an asynchronous TCP listening socket built atop a
// completion based I/O driver.
//
// On Linux the driver is io_uring: every accept, read and write is submitted
// once as a single in-flight request and the calling goroutine is parked on
// that request's completion. There is no readiness polling and no blocking
// syscall on the calling goroutine. On other platforms a thin fallback over
// the net package keeps the API identical.
//
// A listener is constructed from an address specification, either textual
// via Listen, which resolves the specification into an ordered sequence of
// candidate endpoints and binds the first usable one, or concrete via
// ListenTCP, which skips resolution entirely. Each call to Accept submits
// exactly one accept request and suspends until its completion arrives,
// yielding a connected stream together with the remote peer's address.
package tio
