// Package primerunner provides a fixed-size goroutine worker pool with
// per-task completion handles, and the prime computation engine built on it.
//
// The pool lives in this package; the engine lives in the primes subpackage.
//
// # Quick Start
//
//	pool, err := primerunner.NewGoroutineThreadPool("workers", 0) // 0 = GOMAXPROCS
//	if err != nil {
//		return err
//	}
//	pool.Start(context.Background())
//	defer pool.Shutdown()
//
//	h, err := pool.Submit(func(ctx context.Context) error {
//		// Your code here
//		return nil
//	})
//	if err != nil {
//		return err // primerunner.ErrPoolClosed after Shutdown
//	}
//	if err := h.Wait(); err != nil {
//		// errors.Is(err, primerunner.ErrTaskFailure)
//	}
//
// # Key Concepts
//
// Handle: returned by Submit and resolved exactly once. Wait may be called any
// number of times. A panic or error inside the task becomes a *TaskError on the
// handle; the worker keeps running.
//
// Barrier: blocks until every submitted task has completed.
//
// Shutdown: rejects new submissions, drains the queue and joins the workers.
//
// # Computing primes
//
//	calc, err := primes.New(0)
//	if err != nil {
//		return err
//	}
//	defer calc.Close()
//	if err := calc.ComputeUpTo(1_000_000); err != nil {
//		return err
//	}
//	fmt.Println(calc.PrimesFound(), len(calc.SnapshotResults()))
package primerunner
