// Package errmatch embeds error-log triage in a Go program.
//
// A Client matches a log against a catalog of known errors by embedding
// similarity, classifies it against caller-supplied labels, or combines both
// into a triage verdict. The knowledge base lives in Postgres (pgvector),
// Redis (RediSearch), SQLite (sqlite-vec) or in memory.
//
//	client, _ := errmatch.New(ctx,
//	    errmatch.WithPostgres(os.Getenv("DATABASE_URL")),
//	    errmatch.WithONNX("model.onnx", "vocab.txt", ""),
//	)
//	defer client.Close()
//
//	_, _ = client.Reseed(ctx, nil) // built-in catalog
//	m, found, _ := client.FindBestMatch(ctx, "npm ERR! ERESOLVE unable to resolve dependency tree")
//	v, _ := client.Triage(ctx, logText, "Dependency Error", "Runtime Error")
//
// Without a database option the client still classifies; similarity
// operations return ErrDatabaseNotConfigured.
package errmatch
