// Package casredis is a typed cache-aside client for Redis with
// compare-and-swap built on server-side Lua.
//
// Components:
//   - Client: owns the connection, key prefix, script registry and optional near cache.
//   - Cache[V]: typed view over a Client; values go through codec.Codec[V].
//   - scripts.Registry: loads remove-if-equal / replace-if-equal once on every primary.
//   - topology: discovers primaries and replicas for script loading and FlushAll.
//
// Wire format:
//
//	scalars (bool, ints, floats, strings) - plain text, so Lua compares them byte-for-byte
//	[]byte                                - stored as is
//	everything else                       - Options.Serializer (JSON by default)
//	nil                                   - "@@NULL"
//
// Reads never fail on a miss: Item.State is NotFound, FoundNull or Found.
// A value that cannot be decoded is logged and reported as NotFound.
//
// CAS pattern:
//
//	c, _ := casredis.New(casredis.Options{Client: rdb, Prefix: "app:"})
//	users := casredis.For[User](c)
//	it, _ := users.Get(ctx, "user:1")
//	next := it.Value
//	next.Visits++
//	ok, _ := users.ReplaceIfEquals(ctx, "user:1", next, it.Value, 0) // false if someone else won
package casredis
