// ghostnetctl is a command-line client for the ghostnet API. It logs in
// through the dev endpoint and drives a single player through the game
// commands, printing server responses as indented JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/ghostnet/api/internal/client"
)

const usage = `usage: ghostnetctl [flags] <command> [args]

commands:
  create   <game-id> <stake>                       create a game lobby
  join     <game-id>                               join a lobby
  start    <game-id>                               start a game (creator only)
  move     <game-id> <fx> <fy> <tx> <ty> <count>   move units between tiles
  defend   <game-id> <x> <y>                       build a defense structure
  train    <game-id> <x> <y> <count>               train units on a tile
  collect  <game-id>                               collect resources
  strategy <game-id> <mode>                        set strategy mode
  end      <game-id>                               finish a game (creator only)
  status   <game-id>                               show game state
  player   <game-id> <player>                      show a player's ledger
  snapshot <game-id>                               show the frozen snapshot
  list     [filter]                                list open or active games
  watch    <game-id>                               stream game events
`

func main() {
	serverURL := flag.String("url", "http://localhost:8019", "server base URL")
	name := flag.String("name", "ghostnetctl", "player name for dev login")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := client.New(*name, *serverURL)
	if err := c.Login(); err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	if err := run(c, args[0], args[1:]); err != nil {
		log.Fatal().Err(err).Str("command", args[0]).Msg("Command failed")
	}
}

func run(c *client.Client, command string, args []string) error {
	switch command {
	case "create":
		gameID, stake, err := parseID2(args, "create <game-id> <stake>")
		if err != nil {
			return err
		}
		return print(c.CreateGame(gameID, stake))

	case "join":
		gameID, err := parseID(args, "join <game-id>")
		if err != nil {
			return err
		}
		return print(c.JoinGame(gameID))

	case "start":
		gameID, err := parseID(args, "start <game-id>")
		if err != nil {
			return err
		}
		return print(c.StartGame(gameID))

	case "move":
		gameID, coords, err := parseCoords(args, 5, "move <game-id> <fx> <fy> <tx> <ty> <count>")
		if err != nil {
			return err
		}
		return print(c.MoveUnits(gameID, coords[0], coords[1], coords[2], coords[3], coords[4]))

	case "defend":
		gameID, coords, err := parseCoords(args, 2, "defend <game-id> <x> <y>")
		if err != nil {
			return err
		}
		return print(c.BuildDefense(gameID, coords[0], coords[1]))

	case "train":
		gameID, coords, err := parseCoords(args, 3, "train <game-id> <x> <y> <count>")
		if err != nil {
			return err
		}
		return print(c.TrainUnits(gameID, coords[0], coords[1], coords[2]))

	case "collect":
		gameID, err := parseID(args, "collect <game-id>")
		if err != nil {
			return err
		}
		return print(c.CollectResources(gameID))

	case "strategy":
		if len(args) != 2 {
			return fmt.Errorf("usage: strategy <game-id> <mode>")
		}
		gameID, err := parseID(args[:1], "strategy <game-id> <mode>")
		if err != nil {
			return err
		}
		return print(c.SetStrategy(gameID, args[1]))

	case "end":
		gameID, err := parseID(args, "end <game-id>")
		if err != nil {
			return err
		}
		return print(c.EndGame(gameID))

	case "status":
		gameID, err := parseID(args, "status <game-id>")
		if err != nil {
			return err
		}
		return print(c.GetGame(gameID))

	case "player":
		if len(args) != 2 {
			return fmt.Errorf("usage: player <game-id> <player>")
		}
		gameID, err := parseID(args[:1], "player <game-id> <player>")
		if err != nil {
			return err
		}
		return print(c.GetPlayer(gameID, args[1]))

	case "snapshot":
		gameID, err := parseID(args, "snapshot <game-id>")
		if err != nil {
			return err
		}
		return print(c.GetSnapshot(gameID))

	case "list":
		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}
		games, err := c.ListGames(filter)
		if err != nil {
			return err
		}
		return dump(games)

	case "watch":
		gameID, err := parseID(args, "watch <game-id>")
		if err != nil {
			return err
		}
		return watch(c, gameID)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// watch subscribes to a game's event stream and prints events until the
// game ends or the connection drops.
func watch(c *client.Client, gameID uint64) error {
	if err := c.ConnectWS(); err != nil {
		return err
	}
	defer c.CloseWS()

	if err := c.SubscribeGame(gameID); err != nil {
		return err
	}
	log.Info().Uint64("gameId", gameID).Msg("Watching game")

	for event := range c.Events() {
		if event.Type == "connected" || event.Type == "subscribed" {
			continue
		}
		if err := dump(event); err != nil {
			return err
		}
		if event.Type == "game_ended" {
			return nil
		}
	}
	return nil
}

func print(resp map[string]any, err error) error {
	if err != nil {
		return err
	}
	return dump(resp)
}

func dump(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func parseID(args []string, usage string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	gameID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid game ID %q", args[0])
	}
	return gameID, nil
}

func parseID2(args []string, usage string) (uint64, uint64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("usage: %s", usage)
	}
	gameID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid game ID %q", args[0])
	}
	stake, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid stake %q", args[1])
	}
	return gameID, stake, nil
}

func parseCoords(args []string, n int, usage string) (uint64, []int, error) {
	if len(args) != n+1 {
		return 0, nil, fmt.Errorf("usage: %s", usage)
	}
	gameID, err := parseID(args[:1], usage)
	if err != nil {
		return 0, nil, err
	}
	coords := make([]int, n)
	for i, arg := range args[1:] {
		coords[i], err = strconv.Atoi(arg)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid coordinate %q", arg)
		}
	}
	return gameID, coords, nil
}
