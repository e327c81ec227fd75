// Package mongo wraps the official MongoDB v2 driver with env-driven
// configuration, connect-with-retry and a health check.
//
//	var cfg mongo.Config
//	_ = config.Load(&cfg)
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	ready := mongo.Healthcheck(db.Client())
package mongo
