package value

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack implements msgpack.CustomEncoder so a Value round-trips through the binary codec
// using its native wire representation rather than being boxed in an envelope: integers encode as
// msgpack ints, reals as floats, and so on. This is what lets existing MessagePack tooling read the
// object files this package produces.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindNil:
		return enc.EncodeNil()
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindReal:
		return enc.EncodeFloat64(v.r)
	case KindString:
		return enc.EncodeString(v.s)
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindList:
		if err := enc.EncodeArrayLen(len(v.list)); err != nil {
			return err
		}

		for _, item := range v.list {
			if err := enc.Encode(item); err != nil {
				return err
			}
		}

		return nil
	case KindMap:
		if err := enc.EncodeMapLen(len(v.dict)); err != nil {
			return err
		}

		for k, val := range v.dict {
			if err := encodeMapKey(enc, k); err != nil {
				return err
			}

			if err := enc.Encode(val); err != nil {
				return err
			}
		}

		return nil
	default:
		return fmt.Errorf("%w: unencodable kind %s", ErrType, v.kind)
	}
}

func encodeMapKey(enc *msgpack.Encoder, k MapKey) error {
	if k.kind == KindInt {
		return enc.EncodeInt(k.i)
	}

	return enc.EncodeString(k.s)
}

// DecodeMsgpack implements msgpack.CustomDecoder, inspecting the next wire type to reconstruct the
// tagged Value it represents.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	code, err := dec.PeekCode()
	if err != nil {
		return err
	}

	switch {
	case msgpack.IsFixedNum(code) || code == msgpack.Int8Code || code == msgpack.Int16Code ||
		code == msgpack.Int32Code || code == msgpack.Int64Code || code == msgpack.Uint8Code ||
		code == msgpack.Uint16Code || code == msgpack.Uint32Code || code == msgpack.Uint64Code:
		i, err := dec.DecodeInt64()
		if err != nil {
			return err
		}

		*v = Int(i)

		return nil
	case code == msgpack.Float32Code || code == msgpack.Float64Code:
		r, err := dec.DecodeFloat64()
		if err != nil {
			return err
		}

		*v = Real(r)

		return nil
	case code == msgpack.NilCode:
		if err := dec.DecodeNil(); err != nil {
			return err
		}

		*v = Nil

		return nil
	case code == msgpack.TrueCode || code == msgpack.FalseCode:
		b, err := dec.DecodeBool()
		if err != nil {
			return err
		}

		*v = Bool(b)

		return nil
	case msgpack.IsFixedString(code) || code == msgpack.Str8Code || code == msgpack.Str16Code ||
		code == msgpack.Str32Code || code == msgpack.Bin8Code || code == msgpack.Bin16Code ||
		code == msgpack.Bin32Code:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}

		*v = String(s)

		return nil
	case msgpack.IsFixedArray(code) || code == msgpack.Array16Code || code == msgpack.Array32Code:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return err
		}

		items := make([]Value, n)

		for i := 0; i < n; i++ {
			if err := dec.Decode(&items[i]); err != nil {
				return err
			}
		}

		*v = Value{kind: KindList, list: items}

		return nil
	case msgpack.IsFixedMap(code) || code == msgpack.Map16Code || code == msgpack.Map32Code:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return err
		}

		dict := make(map[MapKey]Value, n)

		for i := 0; i < n; i++ {
			key, err := decodeMapKey(dec)
			if err != nil {
				return err
			}

			var val Value
			if err := dec.Decode(&val); err != nil {
				return err
			}

			dict[key] = val
		}

		*v = Value{kind: KindMap, dict: dict}

		return nil
	default:
		return fmt.Errorf("%w: undecodable wire code %#x", ErrType, code)
	}
}

func decodeMapKey(dec *msgpack.Decoder) (MapKey, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return MapKey{}, err
	}

	if msgpack.IsFixedString(code) || code == msgpack.Str8Code || code == msgpack.Str16Code || code == msgpack.Str32Code {
		s, err := dec.DecodeString()
		if err != nil {
			return MapKey{}, err
		}

		return StringKey(s), nil
	}

	i, err := dec.DecodeInt64()
	if err != nil {
		return MapKey{}, fmt.Errorf("%w: map key must be string or integer: %w", ErrType, err)
	}

	return IntKey(i), nil
}
