package domain

import "fmt"

// InferenceRequest — запрос на запуск endpoint'а по имени.
// Сервер оркестрации превращает его в Task.
type InferenceRequest struct {
	EndpointName         string              `json:"endpoint_name"`
	InputParameters      map[string][]string `json:"input_parameters"`
	UniqueParameterNames []string            `json:"unique_parameter_names"`

	// IsDedicated не отправляется серверу: воркер выставляет его в полученном task.
	IsDedicated bool `json:"is_dedicated,omitempty"`
}

// Validate проверяет, что уникальные параметры есть среди входных.
func (r *InferenceRequest) Validate() error {
	if r.EndpointName == "" {
		return fmt.Errorf("%w: endpoint_name is required", ErrInvalidTask)
	}
	for _, name := range r.UniqueParameterNames {
		if _, ok := r.InputParameters[name]; !ok {
			return fmt.Errorf("%w: unique_parameter_name %s not found in input_parameters", ErrInvalidTask, name)
		}
	}
	return nil
}
