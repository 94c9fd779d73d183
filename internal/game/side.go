package game

import (
	"encoding/json"
	"fmt"
)

type Side int

const (
	SideOne Side = iota
	SideTwo
)

func SideFromNumber(n int) (Side, error) {
	switch n {
	case 1:
		return SideOne, nil
	case 2:
		return SideTwo, nil
	default:
		return 0, fmt.Errorf("invalid side %d", n)
	}
}

func (s Side) Other() Side {
	if s == SideOne {
		return SideTwo
	} else {
		return SideOne
	}
}

func (s Side) Number() int {
	return int(s) + 1
}

func (s Side) String() string {
	if s == SideOne {
		return "player 1"
	} else {
		return "player 2"
	}
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Number())
}

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseBattle
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseBattle:
		return "battle"
	case PhaseGameOver:
		return "game_over"
	default:
		panic("invalid phase")
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}
