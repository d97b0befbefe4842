// Environment-based configuration loading
//
// Copyright (c) 2021, 2022  Philip Kaludercic
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

package conf

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load builds a Conf from the process environment, first layering
// in a .env file if one is present in the working directory (a
// missing .env is not an error -- it is the common case in
// production where variables are set directly).
func Load() *Conf {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("conf: ignoring .env: %v", err)
	}

	c := Default()

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			c.Port = uint(n)
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConnections = n
		}
	}
	if v := os.Getenv("MATCHMAKING_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MatchmakingTick = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("SESSION_OUTBOUND_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OutboundCapacity = n
		}
	}
	if v := os.Getenv("CLOCK_TICK_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ClockTick = time.Duration(n) * time.Millisecond
		}
	}
	if v := os.Getenv("INITIAL_CLOCK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.InitialClock = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CLOCK_INCREMENT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ClockIncrement = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DEBUG"); v == "1" || v == "true" {
		c.Debug.SetOutput(os.Stderr)
	}

	return c
}

// Dump writes the effective configuration to wr, mirroring the
// previous TOML-file generation's --dump-config flag even though
// there is no file format to round-trip here.
func Dump(c *Conf, wr io.Writer) {
	log.New(wr, "", 0).Printf(
		"port=%d matchmaking_tick=%s clock_tick=%s outbound_capacity=%d max_connections=%d database_url=%q",
		c.Port, c.MatchmakingTick, c.ClockTick, c.OutboundCapacity, c.MaxConnections, c.DatabaseURL)
}
