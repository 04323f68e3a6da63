package gpio

// faultLatch reports a failing line once per run of consecutive errors.
type faultLatch struct {
	failing bool
	report  func(error)
}

func (f *faultLatch) observe(err error) {
	if err == nil {
		f.failing = false
		return
	}
	if f.failing {
		return
	}
	f.failing = true
	if f.report != nil {
		f.report(err)
	}
}
