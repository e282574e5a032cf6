package main

// General API documentation for swaggo. The registered doc lives in
// internal/httpapi/docs; build with -tags=swagger to serve it.
//
// @title           modelgate API
// @version         1.0
// @description     Readiness-aware proxy in front of a local Ollama daemon.
//
// @contact.name   modelgate maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
