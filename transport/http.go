// HTTP sidebar routes
//
// Copyright (c) 2021, 2022, 2023  Philip Kaludercic
//
// This file is part of chessd.
//
// chessd is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// chessd is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with chessd. If not, see
// <http://www.gnu.org/licenses/>

package transport

import (
	"encoding/json"
	"net/http"

	"chessd/session"
)

// NewMux wires the WebSocket endpoint alongside the liveness and
// card-catalog routes.
func NewMux(router *session.Router, outboundCapacity int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", Handler(router, outboundCapacity))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/api/cards", cardsHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// cardsHandler exists so the route is present; the card catalog
// itself is out of scope and always reports empty.
func cardsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode([]struct{}{})
}
