package engine

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/graph"
	"github.com/dravaio/drava/wire"
	"golang.org/x/xerrors"
)

// Tags for the per-vertex checkpoint record fields. Decoders skip unknown
// tags so fields can be added without invalidating existing checkpoints.
const (
	tagVertexEnd   = 0
	tagVertexCore  = 1
	tagVertexEdges = 2
	tagVertexInbox = 3
)

// WriteCheckpoint persists the owned partitions and the aggregator values to
// store, keyed by jobID and the current superstep. The coordinator invokes it
// right after advancing to the checkpointed superstep so that each vertex
// record captures the messages already delivered for it; resuming from the
// checkpoint replays none and loses none. Writing is idempotent: a worker
// that checkpoints, fails before the barrier and retries simply overwrites
// identical records.
func (e *Engine[ID, V, E, M]) WriteCheckpoint(ctx context.Context, store checkpoint.Store, jobID string) error {
	for part, p := range e.parts {
		state, err := e.encodePartition(p)
		if err != nil {
			return xerrors.Errorf("checkpoint partition %d: %w", part, err)
		}
		if err := store.WritePartition(ctx, jobID, e.superstep, part, state); err != nil {
			return xerrors.Errorf("checkpoint partition %d: %w", part, err)
		}
	}

	var buf bytes.Buffer
	if err := e.aggrs.Snapshot(wire.NewWriter(&buf)); err != nil {
		return xerrors.Errorf("checkpoint aggregators: %w", err)
	}
	if err := store.WriteAggregators(ctx, jobID, e.superstep, buf.Bytes()); err != nil {
		return xerrors.Errorf("checkpoint aggregators: %w", err)
	}
	return nil
}

// RestoreCheckpoint rebuilds the owned partitions and aggregator values from
// the checkpoint tagged with the specified superstep and positions the engine
// at that superstep. Any state loaded before the call is discarded, which
// makes restores idempotent.
func (e *Engine[ID, V, E, M]) RestoreCheckpoint(ctx context.Context, store checkpoint.Store, jobID string, superstep int) error {
	for part := range e.parts {
		state, err := store.ReadPartition(ctx, jobID, superstep, part)
		if err != nil {
			return xerrors.Errorf("restore partition %d: %w", part, err)
		}
		p := graph.NewPartition[ID, V, E, M](part, e.cfg.EdgeStorage)
		if err := e.decodePartition(p, state, superstep); err != nil {
			return xerrors.Errorf("restore partition %d: %w", part, err)
		}
		e.parts[part] = p
	}

	aggrState, err := store.ReadAggregators(ctx, jobID, superstep)
	if err != nil {
		return xerrors.Errorf("restore aggregators: %w", err)
	}
	if err := e.aggrs.RestoreSnapshot(wire.NewReader(bytes.NewReader(aggrState))); err != nil {
		return xerrors.Errorf("restore aggregators: %w", err)
	}
	e.freezeAggregators()
	e.superstep = superstep
	return nil
}

// encodePartition serializes a partition into a standalone byte slice.
// Vertices are emitted in the order of their encoded IDs so that
// checkpointing the same partition state twice produces identical bytes.
func (e *Engine[ID, V, E, M]) encodePartition(p *graph.Partition[ID, V, E, M]) ([]byte, error) {
	type vertexRecord struct {
		idBytes []byte
		v       *graph.Vertex[ID, V, E, M]
	}
	records := make([]vertexRecord, 0, p.Len())
	for id, v := range p.Vertices() {
		idBytes, err := wire.EncodeToBytes(e.cfg.IDCodec, id)
		if err != nil {
			return nil, xerrors.Errorf("encode vertex ID: %w", err)
		}
		records = append(records, vertexRecord{idBytes: idBytes, v: v})
	}
	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].idBytes, records[j].idBytes) < 0
	})

	var buf bytes.Buffer
	w := wire.NewWriter(&buf)
	if err := w.WriteUvarint(uint64(len(records))); err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := e.encodeVertex(w, rec.idBytes, rec.v); err != nil {
			return nil, xerrors.Errorf("encode vertex %v: %w", rec.v.ID(), err)
		}
	}
	return buf.Bytes(), nil
}

func (e *Engine[ID, V, E, M]) encodeVertex(w *wire.Writer, idBytes []byte, v *graph.Vertex[ID, V, E, M]) error {
	var field bytes.Buffer
	fw := wire.NewWriter(&field)

	if err := fw.WriteBytes(idBytes); err != nil {
		return err
	}
	if err := e.cfg.ValueCodec.Encode(fw, v.Value()); err != nil {
		return err
	}
	if err := fw.WriteBool(v.Halted()); err != nil {
		return err
	}
	if err := w.WriteField(tagVertexCore, field.Bytes()); err != nil {
		return err
	}

	if v.Edges().Len() != 0 {
		field.Reset()
		if err := fw.WriteUvarint(uint64(v.Edges().Len())); err != nil {
			return err
		}
		err := v.Edges().ForEach(func(dst ID, val E) error {
			if err := e.cfg.IDCodec.Encode(fw, dst); err != nil {
				return err
			}
			return e.cfg.EdgeCodec.Encode(fw, val)
		})
		if err != nil {
			return err
		}
		if err := w.WriteField(tagVertexEdges, field.Bytes()); err != nil {
			return err
		}
	}

	if pending := v.PendingInboundFor(e.superstep); len(pending) != 0 {
		field.Reset()
		if err := fw.WriteUvarint(uint64(len(pending))); err != nil {
			return err
		}
		for _, msg := range pending {
			if err := e.cfg.MessageCodec.Encode(fw, msg); err != nil {
				return err
			}
		}
		if err := w.WriteField(tagVertexInbox, field.Bytes()); err != nil {
			return err
		}
	}

	return w.WriteField(tagVertexEnd, nil)
}

func (e *Engine[ID, V, E, M]) decodePartition(p *graph.Partition[ID, V, E, M], state []byte, superstep int) error {
	r := wire.NewReader(bytes.NewReader(state))
	numVertices, err := r.ReadUvarint()
	if err != nil {
		return err
	}
	for i := uint64(0); i < numVertices; i++ {
		if err := e.decodeVertex(r, p, superstep); err != nil {
			if err == io.EOF {
				return xerrors.Errorf("truncated partition record: %w", wire.ErrCorrupt)
			}
			return err
		}
	}
	return nil
}

func (e *Engine[ID, V, E, M]) decodeVertex(r *wire.Reader, p *graph.Partition[ID, V, E, M], superstep int) error {
	var (
		v       *graph.Vertex[ID, V, E, M]
		id      ID
		sawCore bool
	)
	for {
		tag, payload, err := r.ReadField()
		if err != nil {
			return err
		}
		if tag == tagVertexEnd {
			break
		}
		fr := wire.NewReader(bytes.NewReader(payload))
		switch tag {
		case tagVertexCore:
			idBytes, err := fr.ReadBytes()
			if err != nil {
				return err
			}
			if id, err = wire.DecodeFromBytes(e.cfg.IDCodec, idBytes); err != nil {
				return err
			}
			val, err := e.cfg.ValueCodec.Decode(fr)
			if err != nil {
				return err
			}
			halted, err := fr.ReadBool()
			if err != nil {
				return err
			}
			v = p.AddVertex(id, val)
			if halted {
				v.VoteToHalt()
			}
			sawCore = true
		case tagVertexEdges:
			if !sawCore {
				return xerrors.Errorf("edge field precedes vertex core field: %w", wire.ErrCorrupt)
			}
			numEdges, err := fr.ReadUvarint()
			if err != nil {
				return err
			}
			for j := uint64(0); j < numEdges; j++ {
				dst, err := e.cfg.IDCodec.Decode(fr)
				if err != nil {
					return err
				}
				val, err := e.cfg.EdgeCodec.Decode(fr)
				if err != nil {
					return err
				}
				if err := p.AddEdge(id, dst, val); err != nil {
					return err
				}
			}
		case tagVertexInbox:
			if !sawCore {
				return xerrors.Errorf("inbox field precedes vertex core field: %w", wire.ErrCorrupt)
			}
			numMsgs, err := fr.ReadUvarint()
			if err != nil {
				return err
			}
			for j := uint64(0); j < numMsgs; j++ {
				msg, err := e.cfg.MessageCodec.Decode(fr)
				if err != nil {
					return err
				}
				v.EnqueueFor(superstep, msg)
			}
		default:
			// Unknown optional field; payload already consumed.
		}
	}
	if !sawCore {
		return xerrors.Errorf("vertex record missing core field: %w", wire.ErrCorrupt)
	}
	return nil
}
