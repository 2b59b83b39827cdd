// Package session implements the discovery session behind the printer
// picker screen.
//
// A Session owns the list of discovered printers. It starts discovery with
// the picker's fixed filter (printers only, vendor name filter on), collects
// reported devices in arrival order, restarts discovery on request and
// returns the target string of the device the user selects.
//
// # Ownership
//
// Every method except Stop and Pending must be called from a single owner
// goroutine (the bubbletea Update loop, or the scan command's loop).
// Discovery callbacks arrive on the discoverer's goroutine and never touch
// the list directly: they are queued in a mailbox, Pending signals the
// owner, and the owner applies them with Deliver.
//
//	s := session.New(svc, session.WithNotifier(n))
//	if err := s.Open(); err != nil {
//	    // already reported through n; the list stays empty
//	}
//	for {
//	    select {
//	    case <-s.Pending():
//	        s.Deliver()
//	    case <-done:
//	        s.Close(ctx)
//	        return
//	    }
//	}
//
// # Stopping
//
// Stopping discovery may report discovery.ErrProcessing while backends wind
// down. Stop retries those with bounded exponential backoff and gives up
// with ErrStopTimeout once RetryOptions.Timeout has elapsed. Any other stop
// error aborts immediately.
package session
