// Shared logging
//
// Copyright (c) 2023  Philip Kaludercic
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

package chessd

import (
	"io"
	"log"
)

// Debug is silenced by default (written to io.Discard); cmd/chessd
// redirects it to stderr when DEBUG is set.
var Debug = log.New(io.Discard, "[debug] ", log.Ltime|log.Lshortfile|log.Lmicroseconds)
