package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sanuei/YoutubePlanner-sub000/internal/server/middleware"
	"github.com/sanuei/YoutubePlanner-sub000/internal/store"
	"github.com/sanuei/YoutubePlanner-sub000/pkg/mindmap"
)

type documentBody struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	NodesJSON   string `json:"nodesJson"`
	EdgesJSON   string `json:"edgesJson"`
}

func (b documentBody) input() store.DocumentInput {
	return store.DocumentInput{
		Title:       b.Title,
		Description: b.Description,
		NodesJSON:   b.NodesJSON,
		EdgesJSON:   b.EdgesJSON,
	}
}

func ListDocumentsHandler(c echo.Context) error {
	type listDocumentsQuery struct {
		Search string `query:"search"`
		Page   int    `query:"page" validate:"min=0"`
		Limit  int    `query:"limit" validate:"min=0,max=100"`
	}

	data := new(listDocumentsQuery)
	if !bindValid(c, data) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid query parameters"})
	}

	res, err := middleware.GetApp(c).Store.List(c.Request().Context(), store.ListParams{
		Search: data.Search,
		Page:   data.Page,
		Limit:  data.Limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func GetDocumentHandler(c echo.Context) error {
	doc, err := middleware.GetApp(c).Store.Load(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func CreateDocumentHandler(c echo.Context) error {
	data := new(documentBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}
	return saveDocument(c, "", data)
}

func UpdateDocumentHandler(c echo.Context) error {
	data := new(documentBody)
	if !bindValid(c, data) {
		return invalidRequest(c)
	}
	return saveDocument(c, c.Param("id"), data)
}

func saveDocument(c echo.Context, id string, data *documentBody) error {
	if _, err := mindmap.DecodeGraph(data.NodesJSON, data.EdgesJSON); err != nil {
		return respondError(c, err)
	}

	saved, err := middleware.GetApp(c).Store.Save(c.Request().Context(), id, data.input())
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return c.JSON(status, map[string]string{"id": saved})
}

func DeleteDocumentHandler(c echo.Context) error {
	if err := middleware.GetApp(c).Store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
