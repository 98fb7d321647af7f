// Package bootstrap runs a finite orthotile task inside the standard
// lifecycle: defaults, validation, logger setup, component start, the task
// itself under a context cancelled by SIGINT or SIGTERM, then component stop.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(model)
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    return driver.Run(ctx, sessions)
//	})
package bootstrap
