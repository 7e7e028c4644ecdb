package core

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// PointIDMUS serializes a PointID as a string flag followed by either a
// varint uint64 or a length-prefixed string.
var PointIDMUS = pointIDMUS{}

// CollectionConfigMUS serializes a CollectionConfig as a varint size
// followed by the distance name.
var CollectionConfigMUS = collectionConfigMUS{}

type pointIDMUS struct{}

func (pointIDMUS) Marshal(v PointID, bs []byte) (n int) {
	n = ord.Bool.Marshal(v.isStr, bs)
	if v.isStr {
		return n + ord.String.Marshal(v.str, bs[n:])
	}
	return n + varint.Uint64.Marshal(v.num, bs[n:])
}

func (pointIDMUS) Unmarshal(bs []byte) (PointID, int, error) {
	isStr, n, err := ord.Bool.Unmarshal(bs)
	if err != nil {
		return PointID{}, n, err
	}
	if isStr {
		s, n1, err := ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return PointID{}, n, err
		}
		return StringID(s), n, nil
	}
	num, n1, err := varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return PointID{}, n, err
	}
	return NumericID(num), n, nil
}

func (pointIDMUS) Size(v PointID) int {
	size := ord.Bool.Size(v.isStr)
	if v.isStr {
		return size + ord.String.Size(v.str)
	}
	return size + varint.Uint64.Size(v.num)
}

type collectionConfigMUS struct{}

func (collectionConfigMUS) Marshal(v CollectionConfig, bs []byte) (n int) {
	n = varint.Int.Marshal(v.Size, bs)
	return n + ord.String.Marshal(string(v.Distance), bs[n:])
}

func (collectionConfigMUS) Unmarshal(bs []byte) (CollectionConfig, int, error) {
	size, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return CollectionConfig{}, n, err
	}
	distance, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return CollectionConfig{}, n, err
	}
	return CollectionConfig{Size: size, Distance: Distance(distance)}, n, nil
}

func (collectionConfigMUS) Size(v CollectionConfig) int {
	return varint.Int.Size(v.Size) + ord.String.Size(string(v.Distance))
}
