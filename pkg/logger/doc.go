// Package logger builds structured slog loggers for pushkit services.
//
// New creates a *slog.Logger configured by Option functions: output format
// (text or JSON), minimum level, static attributes applied to every record,
// and ContextExtractor callbacks that pull request-scoped values out of
// context.Context on each call. TraceExtractor attaches the OpenTelemetry
// trace and span ids of the active span so dispatch logs can be joined with
// traces.
//
// Attribute helpers (RecordID, RecipientID, Outcome, Kind, ...) keep key
// names consistent across packages:
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "pushd"),
//	    logger.WithContextExtractors(logger.TraceExtractor()),
//	)
//	log.InfoContext(ctx, "notification sent",
//	    logger.RecordID(rec.ID),
//	    logger.RecipientID(userID),
//	)
//
// Error and UserID return an empty attribute for nil/empty input, so they can
// be passed without a guard.
package logger
