// Package backend hosts one interchangeable package-manager module and
// dispatches operations to it.
//
// A module is any value implementing Module; the optional interfaces in
// module.go it also implements become the slots of its capability
// descriptor (Desc). The roles a module supports are inferred from which
// slots are present. Backend serializes concurrent runs of the same role for
// modules that cannot run them in parallel, keeps the accepted EULA set and
// owns the job lifecycle hooks.
//
// Typical use by a transport:
//
//	b := backend.New(backend.Options{Config: conf, Logger: &logger})
//	if err := b.Load(); err != nil {
//		return err
//	}
//	defer b.Close()
//
//	job := backend.NewJob(ctx)
//	job.SetVFunc(backend.SignalFinished, onFinished)
//	b.StartJob(job)
//	if b.IsImplemented(core.RoleResolve) {
//		b.Resolve(job, filters, []string{"hello"})
//	}
package backend
