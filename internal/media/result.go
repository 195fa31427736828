package media

import "fmt"

// ResultKind discriminates the fetch result envelope.
type ResultKind int

const (
	KindLoading ResultKind = iota
	KindSuccess
	KindAlbums
	KindEmpty
	KindError
)

func (k ResultKind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindAlbums:
		return "albums"
	case KindEmpty:
		return "empty"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Result is the envelope every fetch emits. A fetch channel carries at most
// one Loading followed by exactly one terminal result (Success, Albums, Empty
// or Error), then closes.
type Result struct {
	Kind    ResultKind
	Items   []Item
	Albums  []Album
	Message string
}

func Loading() Result {
	return Result{Kind: KindLoading}
}

// Success wraps a non-empty item collection.
func Success(items []Item) Result {
	return Result{Kind: KindSuccess, Items: items}
}

// Albums wraps a non-empty album collection.
func Albums(albums []Album) Result {
	return Result{Kind: KindAlbums, Albums: albums}
}

func Empty() Result {
	return Result{Kind: KindEmpty}
}

func Errorf(format string, args ...interface{}) Result {
	return Result{Kind: KindError, Message: fmt.Sprintf(format, args...)}
}

// IsTerminal reports whether r ends a fetch.
func (r Result) IsTerminal() bool {
	return r.Kind != KindLoading
}
