package api

import (
	"errors"
	"math/big"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rxtech-lab/playlist-launchpad/internal/contracts"
	"github.com/rxtech-lab/playlist-launchpad/internal/models"
	"github.com/rxtech-lab/playlist-launchpad/internal/services"
	"github.com/rxtech-lab/playlist-launchpad/internal/utils"
	"gorm.io/gorm"
)

func parseWei(value string) (*big.Int, bool) {
	return new(big.Int).SetString(value, 10)
}

func queryUint(c *fiber.Ctx, key string) (uint64, bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// handleListPlaylists lists saved playlists filtered by owner and chain
func (s *APIServer) handleListPlaylists(c *fiber.Ctx) error {
	filter := services.PlaylistFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}

	if owner := c.Query("owner"); owner != "" {
		if !utils.IsValidEthereumAddress(owner) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid owner address",
			})
		}
		filter.OwnerAddress = owner
	}

	chainID, ok, err := queryUint(c, "chain_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chain_id",
		})
	}
	if ok {
		filter.ChainID = chainID
	}

	playlists, err := s.playlistService.ListPlaylists(filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"playlists": playlists,
		"total":     len(playlists),
	})
}

func (s *APIServer) handleGetPlaylist(c *fiber.Ctx) error {
	address := c.Params("address")
	if !utils.IsValidEthereumAddress(address) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid playlist address",
		})
	}

	playlist, err := s.playlistService.GetPlaylistByAddress(address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Playlist not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(playlist)
}

// handleGetDeployment returns an attempt and, once it succeeded, its playlist
func (s *APIServer) handleGetDeployment(c *fiber.Ctx) error {
	attempt, err := s.deploymentService.GetAttempt(c.Params("attempt_id"))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Deployment not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	response := fiber.Map{"attempt": attempt}
	if attempt.Status == models.AttemptStatusSuccess {
		if playlist, err := s.playlistService.GetPlaylistByAttemptID(attempt.ID); err == nil {
			response["playlist"] = playlist
		}
	}
	return c.JSON(response)
}

// handleRequiredPayment quotes the save cost on chain_id, or on the active chain when omitted
func (s *APIServer) handleRequiredPayment(c *fiber.Ctx) error {
	chainID, ok, err := queryUint(c, "chain_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chain_id",
		})
	}
	if !ok {
		chain, err := s.chainService.GetActiveChain()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "chain_id is required when no chain is active",
			})
		}
		if chainID, err = chain.ChainIDUint64(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	cents, ok, err := queryUint(c, "cents")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid cents",
		})
	}
	if !ok {
		cents = s.saveCents
	}

	payment, err := s.deploymentService.RequiredPayment(c.UserContext(), chainID, cents)
	if err != nil {
		if errors.Is(err, contracts.ErrUnsupportedChain) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"chain_id":   chainID,
		"cents":      payment.Cents,
		"amount_wei": payment.Amount.String(),
		"amount_eth": utils.FormatEther(payment.Amount),
		"source":     payment.Source,
	})
}
