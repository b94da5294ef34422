// Package knownerror holds the knowledge base backends. Every backend stores a
// flat catalog of known errors with a cosine vector index and replaces it
// atomically: readers observe either the previous catalog or the new one.
// Nearest returns candidates ordered by (distance ASC, id ASC).
package knownerror
