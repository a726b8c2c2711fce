// Package logging builds the slog loggers shared by the binaries and carries
// request-scoped loggers through context.
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithLogger(ctx, logging.WithRequestID(ctx, logger))
//	logging.FromContext(ctx).Info("generation requested")
package logging
