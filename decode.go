package assoc

import (
	"errors"

	"github.com/goliatone/go-assoc/internal/hydrate"
)

var errDecodeNil = errors.New("assoc: decode nil node")

// Decode converts the serialized graph of n into T through its JSON form.
// Numbers decode as json.Number when T holds them in interface fields.
func Decode[T any](n *Node) (T, error) {
	return decodeNode[T](n, hydrate.WithUseNumber[T]())
}

// DecodeStrict is Decode that rejects attributes T does not declare.
func DecodeStrict[T any](n *Node) (T, error) {
	return decodeNode[T](n, hydrate.WithUseNumber[T](), hydrate.WithDisallowUnknownFields[T]())
}

func decodeNode[T any](n *Node, opts ...hydrate.DecoderOption[T]) (T, error) {
	var zero T
	if n == nil {
		return zero, errDecodeNil
	}
	decoder := hydrate.NewDecoder[T](opts...)
	return decoder.Decode(hydrate.Context{Type: n.typ.name, ID: n.ID()}, n.ToJSON())
}
