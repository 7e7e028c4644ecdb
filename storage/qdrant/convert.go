package qdrant

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/poiesic/revec/core"
	"github.com/poiesic/revec/storage"
	qc "github.com/qdrant/go-client/qdrant"
)

// toPointID converts a point id to its wire form. Qdrant only accepts
// unsigned integers and UUIDs.
func toPointID(id core.PointID) (*qc.PointId, error) {
	if id.IsNumeric() {
		return qc.NewIDNum(id.Num()), nil
	}
	if _, err := uuid.Parse(id.Str()); err != nil {
		return nil, fmt.Errorf("%w: id %q is not a UUID", storage.ErrInvalidPoint, id.Str())
	}
	return qc.NewIDUUID(id.Str()), nil
}

// fromPointID converts a wire id back into a point id.
func fromPointID(id *qc.PointId) (core.PointID, error) {
	switch v := id.GetPointIdOptions().(type) {
	case *qc.PointId_Num:
		return core.NumericID(v.Num), nil
	case *qc.PointId_Uuid:
		return core.StringID(v.Uuid), nil
	default:
		return core.PointID{}, fmt.Errorf("%w: point id has no value", core.ErrInvalidPointID)
	}
}

// toPayload converts a payload map to Qdrant values.
func toPayload(payload map[string]any) (map[string]*qc.Value, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	values, err := qc.TryValueMap(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", storage.ErrInvalidPoint, err)
	}
	return values, nil
}

// fromPayload converts Qdrant values to a payload map.
func fromPayload(values map[string]*qc.Value) map[string]any {
	if len(values) == 0 {
		return nil
	}
	payload := make(map[string]any, len(values))
	for k, v := range values {
		payload[k] = fromValue(v)
	}
	return payload
}

func fromValue(v *qc.Value) any {
	switch kind := v.GetKind().(type) {
	case *qc.Value_StringValue:
		return kind.StringValue
	case *qc.Value_IntegerValue:
		return kind.IntegerValue
	case *qc.Value_DoubleValue:
		return kind.DoubleValue
	case *qc.Value_BoolValue:
		return kind.BoolValue
	case *qc.Value_StructValue:
		fields := kind.StructValue.GetFields()
		out := make(map[string]any, len(fields))
		for k, inner := range fields {
			out[k] = fromValue(inner)
		}
		return out
	case *qc.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, inner := range items {
			out[i] = fromValue(inner)
		}
		return out
	default:
		return nil
	}
}

// toDistance converts a distance to Qdrant's enum.
func toDistance(d core.Distance) (qc.Distance, error) {
	switch d {
	case core.DistanceCosine:
		return qc.Distance_Cosine, nil
	case core.DistanceEuclid:
		return qc.Distance_Euclid, nil
	case core.DistanceDot:
		return qc.Distance_Dot, nil
	case core.DistanceManhattan:
		return qc.Distance_Manhattan, nil
	default:
		return qc.Distance_UnknownDistance, fmt.Errorf("%w: %q", core.ErrInvalidDistance, string(d))
	}
}

// fromDistance converts Qdrant's enum to a distance. Unknown values map to "".
func fromDistance(d qc.Distance) core.Distance {
	switch d {
	case qc.Distance_Cosine:
		return core.DistanceCosine
	case qc.Distance_Euclid:
		return core.DistanceEuclid
	case qc.Distance_Dot:
		return core.DistanceDot
	case qc.Distance_Manhattan:
		return core.DistanceManhattan
	default:
		return ""
	}
}

// toPointStruct converts a point for upsert.
func toPointStruct(p *core.Point) (*qc.PointStruct, error) {
	if err := core.ValidatePoint(p); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidPoint, err)
	}
	id, err := toPointID(p.ID)
	if err != nil {
		return nil, err
	}
	payload, err := toPayload(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("point %s: %w", p.ID, err)
	}
	return &qc.PointStruct{
		Id:      id,
		Vectors: qc.NewVectorsDense(p.Vector),
		Payload: payload,
	}, nil
}
