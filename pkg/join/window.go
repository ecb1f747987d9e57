package join

import "github.com/kittclouds/coordnet/internal/store"

// matchFunc decides, in addition to the window's time bound, whether two
// events in the same key-group actually coordinate. nil means any two
// events within the window match (the co_retweet/co_tweet/co_reply/co_post/
// co_link cases, where the key selector already is the equality test).
type matchFunc func(prior, current store.Row) bool

// slidingWindow runs the core join over one already-sorted (by timestamp,
// then message id) group of events sharing a key. For every pair (e_j, e_i)
// with j before i and t_i - t_j <= windowSize that also satisfies match, it
// emits both directed pairs (user_j, user_i) and (user_i, user_j) — a
// coordinating pair with the same two users on both sides becomes a single
// self-loop counted twice, once per direction.
func slidingWindow(events []store.Row, windowSize float64, match matchFunc, emit func(userA, userB string)) {
	var prior []store.Row

	for _, e := range events {
		cutoff := e.Timestamp - windowSize
		evictBefore := 0
		for evictBefore < len(prior) && prior[evictBefore].Timestamp < cutoff {
			evictBefore++
		}
		if evictBefore > 0 {
			prior = prior[evictBefore:]
		}

		for _, p := range prior {
			if match != nil && !match(p, e) {
				continue
			}
			emit(p.UserID, e.UserID)
			emit(e.UserID, p.UserID)
		}

		prior = append(prior, e)
	}
}
