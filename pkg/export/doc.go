// Package export writes compiled layouts in the node/link JSON format read
// by 3D force-graph viewers.
//
// # Format
//
// Every occupied cell becomes a node and every touch a link:
//
//	{
//	  "nodes": [
//	    {"id": 0, "fy": 0, "fx": 0, "fz": 0, "c": "magenta", "op": 1, "s": 63},
//	    {"id": 264, "fy": 3, "fx": 0, "fz": 11, "c": "blue", "op": 6, "s": 63, "d": 2}
//	  ],
//	  "links": [
//	    {"source": 491, "target": 483, "c": "blue"}
//	  ]
//	}
//
// Node fields:
//   - id: dense cell id, t·rows·cols + i·cols + j
//   - fy, fx, fz: row, column and time slice
//   - c: color of the primary operation kind
//   - op: id of the primary operation
//   - s: exposed-faces mask, 63 when nothing is hidden
//   - d: decorator marker (1 Hadamard, 2 MX, 3 MZ), omitted when absent
//
// Links carry cell ids from the data cell to the cell measuring it.
//
// # Files
//
// [WriteFile] and [ReadFile] pick plain or zstd-compressed JSON from the
// file extension (".json" or ".json.zst"). [Validate] checks raw documents
// against the published JSON schema.
package export
