// Package redis wraps go-redis with voicecap logging, configuration and
// component lifecycle. Its TypedStore keeps JSON records under a key prefix
// and backs the shared trigger ledger used when several agents watch the
// same schedule.
//
//	client, err := redis.New(cfg, log)
//	store := redis.NewTypedStore[Claim](client, "voicecap:trigger")
//	ok, err := store.Create(ctx, "j-1:0:2026-03-02", &claim, 48*time.Hour)
package redis
