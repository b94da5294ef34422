package domain

// DefaultWindowChars is the trailing window, in characters, handed to the
// classifier and the embedder. Error-relevant content sits at the end of a log.
const DefaultWindowChars = 2048
