package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"depict/internal/stats"
)

type jsonTotalRecord struct {
	SymbolName string `json:"symbol_name"`
	Total      uint64 `json:"total"`
}

type jsonBreakdownRecord struct {
	SymbolName string            `json:"symbol_name"`
	Total      uint64            `json:"total"`
	MemRead    uint64            `json:"mem_read"`
	MemWrite   uint64            `json:"mem_write"`
	StackRead  uint64            `json:"stack_read"`
	StackWrite uint64            `json:"stack_write"`
	Call       uint64            `json:"call"`
	Branch     uint64            `json:"branch"`
	Return     uint64            `json:"return"`
	Compare    uint64            `json:"compare"`
	Logic      uint64            `json:"logic"`
	Arithmetic uint64            `json:"arithmetic"`
	Other      map[string]uint64 `json:"other"`
}

func createJsonReport(rows []stats.Entry, breakdown bool) (out []byte, err error) {
	var records any
	if breakdown {
		oRecords := make([]jsonBreakdownRecord, 0, len(rows))
		for _, row := range rows {
			s := row.Statistics
			other := s.Others
			if other == nil {
				other = map[string]uint64{}
			}
			oRecords = append(oRecords, jsonBreakdownRecord{
				SymbolName: row.SymbolName,
				Total:      s.Total,
				MemRead:    s.MemRead,
				MemWrite:   s.MemWrite,
				StackRead:  s.StackRead,
				StackWrite: s.StackWrite,
				Call:       s.Call,
				Branch:     s.Branch,
				Return:     s.Return,
				Compare:    s.Compare,
				Logic:      s.Logic,
				Arithmetic: s.Arithmetic,
				Other:      other,
			})
		}
		records = oRecords
	} else {
		oRecords := make([]jsonTotalRecord, 0, len(rows))
		for _, row := range rows {
			oRecords = append(oRecords, jsonTotalRecord{SymbolName: row.SymbolName, Total: row.Statistics.Total})
		}
		records = oRecords
	}
	out, err = json.MarshalIndent(records, "", " ")
	if err != nil {
		return
	}
	out = append(out, '\n')
	return
}
