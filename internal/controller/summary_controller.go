package controller

import (
	"studyrag-be/internal/dto"
	"studyrag-be/internal/pkg/serverutils"
	"studyrag-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISummaryController interface {
	RegisterRoutes(r fiber.Router)
	Summarize(ctx *fiber.Ctx) error
	Latest(ctx *fiber.Ctx) error
}

type summaryController struct {
	service service.ISummaryService
}

func NewSummaryController(service service.ISummaryService) ISummaryController {
	return &summaryController{service: service}
}

func (c *summaryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/summary/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("topics/:topicId", c.Summarize)
	h.Get("topics/:topicId", c.Latest)
}

func (c *summaryController) Summarize(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	topicId, err := uuid.Parse(ctx.Params("topicId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic id")
	}

	var req dto.SummarizeTopicRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	req.TopicId = topicId

	res, err := c.service.Summarize(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success summarize topic", res))
}

func (c *summaryController) Latest(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	topicId, err := uuid.Parse(ctx.Params("topicId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic id")
	}

	res, err := c.service.Latest(ctx.UserContext(), userId, topicId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get summary", res))
}
