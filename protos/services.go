// Copyright (c) 2024-2026 CrossTalk AI
// Author: Minh Tran <minh@crosstalk.ai>
//
// Licensed under GPL-2.0 with CrossTalk Additional Terms.
// See LICENSE.md or contact sales@crosstalk.ai for commercial usage.

package protos

import (
	"context"

	"google.golang.org/grpc"
)

// ============================================================================
// AudioService
// ============================================================================

const AudioServiceName = "crosstalk.relay.v1.AudioService"

type AudioServiceServer interface {
	ProcessAudioBuffer(context.Context, *ProcessAudioBufferRequest) (*ProcessAudioBufferResponse, error)
	AllocateTranslationPort(context.Context, *AllocateTranslationPortRequest) (*AllocateTranslationPortResponse, error)
	CreateTranslationProduce(context.Context, *CreateTranslationProduceRequest) (*CreateTranslationProduceResponse, error)
	DestroyCabin(context.Context, *DestroyCabinRequest) (*DestroyCabinResponse, error)
}

func RegisterAudioServiceServer(s grpc.ServiceRegistrar, srv AudioServiceServer) {
	s.RegisterService(&AudioService_ServiceDesc, srv)
}

var AudioService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AudioServiceName,
	HandlerType: (*AudioServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ProcessAudioBuffer", Handler: _AudioService_ProcessAudioBuffer_Handler},
		{MethodName: "AllocateTranslationPort", Handler: _AudioService_AllocateTranslationPort_Handler},
		{MethodName: "CreateTranslationProduce", Handler: _AudioService_CreateTranslationProduce_Handler},
		{MethodName: "DestroyCabin", Handler: _AudioService_DestroyCabin_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protos/relay.proto",
}

func _AudioService_ProcessAudioBuffer_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ProcessAudioBufferRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).ProcessAudioBuffer(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + AudioServiceName + "/ProcessAudioBuffer"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).ProcessAudioBuffer(ctx, req.(*ProcessAudioBufferRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AudioService_AllocateTranslationPort_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AllocateTranslationPortRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).AllocateTranslationPort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + AudioServiceName + "/AllocateTranslationPort"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).AllocateTranslationPort(ctx, req.(*AllocateTranslationPortRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AudioService_CreateTranslationProduce_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateTranslationProduceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).CreateTranslationProduce(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + AudioServiceName + "/CreateTranslationProduce"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).CreateTranslationProduce(ctx, req.(*CreateTranslationProduceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _AudioService_DestroyCabin_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DestroyCabinRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AudioServiceServer).DestroyCabin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + AudioServiceName + "/DestroyCabin"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AudioServiceServer).DestroyCabin(ctx, req.(*DestroyCabinRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type AudioServiceClient interface {
	ProcessAudioBuffer(ctx context.Context, in *ProcessAudioBufferRequest, opts ...grpc.CallOption) (*ProcessAudioBufferResponse, error)
	AllocateTranslationPort(ctx context.Context, in *AllocateTranslationPortRequest, opts ...grpc.CallOption) (*AllocateTranslationPortResponse, error)
	CreateTranslationProduce(ctx context.Context, in *CreateTranslationProduceRequest, opts ...grpc.CallOption) (*CreateTranslationProduceResponse, error)
	DestroyCabin(ctx context.Context, in *DestroyCabinRequest, opts ...grpc.CallOption) (*DestroyCabinResponse, error)
}

type audioServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAudioServiceClient(cc grpc.ClientConnInterface) AudioServiceClient {
	return &audioServiceClient{cc}
}

func (c *audioServiceClient) ProcessAudioBuffer(ctx context.Context, in *ProcessAudioBufferRequest, opts ...grpc.CallOption) (*ProcessAudioBufferResponse, error) {
	out := new(ProcessAudioBufferResponse)
	if err := c.cc.Invoke(ctx, "/"+AudioServiceName+"/ProcessAudioBuffer", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *audioServiceClient) AllocateTranslationPort(ctx context.Context, in *AllocateTranslationPortRequest, opts ...grpc.CallOption) (*AllocateTranslationPortResponse, error) {
	out := new(AllocateTranslationPortResponse)
	if err := c.cc.Invoke(ctx, "/"+AudioServiceName+"/AllocateTranslationPort", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *audioServiceClient) CreateTranslationProduce(ctx context.Context, in *CreateTranslationProduceRequest, opts ...grpc.CallOption) (*CreateTranslationProduceResponse, error) {
	out := new(CreateTranslationProduceResponse)
	if err := c.cc.Invoke(ctx, "/"+AudioServiceName+"/CreateTranslationProduce", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *audioServiceClient) DestroyCabin(ctx context.Context, in *DestroyCabinRequest, opts ...grpc.CallOption) (*DestroyCabinResponse, error) {
	out := new(DestroyCabinResponse)
	if err := c.cc.Invoke(ctx, "/"+AudioServiceName+"/DestroyCabin", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// SemanticService
// ============================================================================

const SemanticServiceName = "crosstalk.relay.v1.SemanticService"

type SemanticServiceServer interface {
	SaveTranscript(context.Context, *SaveTranscriptRequest) (*SaveTranscriptResponse, error)
	SearchTranscripts(context.Context, *SearchTranscriptsRequest) (*SearchTranscriptsResponse, error)
	GetAllTranscripts(context.Context, *GetAllTranscriptsRequest) (*GetAllTranscriptsResponse, error)
}

func RegisterSemanticServiceServer(s grpc.ServiceRegistrar, srv SemanticServiceServer) {
	s.RegisterService(&SemanticService_ServiceDesc, srv)
}

var SemanticService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SemanticServiceName,
	HandlerType: (*SemanticServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SaveTranscript", Handler: _SemanticService_SaveTranscript_Handler},
		{MethodName: "SearchTranscripts", Handler: _SemanticService_SearchTranscripts_Handler},
		{MethodName: "GetAllTranscripts", Handler: _SemanticService_GetAllTranscripts_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protos/relay.proto",
}

func _SemanticService_SaveTranscript_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SaveTranscriptRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SemanticServiceServer).SaveTranscript(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + SemanticServiceName + "/SaveTranscript"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SemanticServiceServer).SaveTranscript(ctx, req.(*SaveTranscriptRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SemanticService_SearchTranscripts_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SearchTranscriptsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SemanticServiceServer).SearchTranscripts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + SemanticServiceName + "/SearchTranscripts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SemanticServiceServer).SearchTranscripts(ctx, req.(*SearchTranscriptsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _SemanticService_GetAllTranscripts_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetAllTranscriptsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SemanticServiceServer).GetAllTranscripts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + SemanticServiceName + "/GetAllTranscripts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SemanticServiceServer).GetAllTranscripts(ctx, req.(*GetAllTranscriptsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type SemanticServiceClient interface {
	SaveTranscript(ctx context.Context, in *SaveTranscriptRequest, opts ...grpc.CallOption) (*SaveTranscriptResponse, error)
	SearchTranscripts(ctx context.Context, in *SearchTranscriptsRequest, opts ...grpc.CallOption) (*SearchTranscriptsResponse, error)
	GetAllTranscripts(ctx context.Context, in *GetAllTranscriptsRequest, opts ...grpc.CallOption) (*GetAllTranscriptsResponse, error)
}

type semanticServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSemanticServiceClient(cc grpc.ClientConnInterface) SemanticServiceClient {
	return &semanticServiceClient{cc}
}

func (c *semanticServiceClient) SaveTranscript(ctx context.Context, in *SaveTranscriptRequest, opts ...grpc.CallOption) (*SaveTranscriptResponse, error) {
	out := new(SaveTranscriptResponse)
	if err := c.cc.Invoke(ctx, "/"+SemanticServiceName+"/SaveTranscript", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *semanticServiceClient) SearchTranscripts(ctx context.Context, in *SearchTranscriptsRequest, opts ...grpc.CallOption) (*SearchTranscriptsResponse, error) {
	out := new(SearchTranscriptsResponse)
	if err := c.cc.Invoke(ctx, "/"+SemanticServiceName+"/SearchTranscripts", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *semanticServiceClient) GetAllTranscripts(ctx context.Context, in *GetAllTranscriptsRequest, opts ...grpc.CallOption) (*GetAllTranscriptsResponse, error) {
	out := new(GetAllTranscriptsResponse)
	if err := c.cc.Invoke(ctx, "/"+SemanticServiceName+"/GetAllTranscripts", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// ============================================================================
// ChatbotService
// ============================================================================

const ChatbotServiceName = "crosstalk.relay.v1.ChatbotService"

type ChatbotServiceServer interface {
	AskChatBot(context.Context, *AskChatBotRequest) (*AskChatBotResponse, error)
}

func RegisterChatbotServiceServer(s grpc.ServiceRegistrar, srv ChatbotServiceServer) {
	s.RegisterService(&ChatbotService_ServiceDesc, srv)
}

var ChatbotService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ChatbotServiceName,
	HandlerType: (*ChatbotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AskChatBot", Handler: _ChatbotService_AskChatBot_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protos/relay.proto",
}

func _ChatbotService_AskChatBot_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AskChatBotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatbotServiceServer).AskChatBot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ChatbotServiceName + "/AskChatBot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ChatbotServiceServer).AskChatBot(ctx, req.(*AskChatBotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type ChatbotServiceClient interface {
	AskChatBot(ctx context.Context, in *AskChatBotRequest, opts ...grpc.CallOption) (*AskChatBotResponse, error)
}

type chatbotServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChatbotServiceClient(cc grpc.ClientConnInterface) ChatbotServiceClient {
	return &chatbotServiceClient{cc}
}

func (c *chatbotServiceClient) AskChatBot(ctx context.Context, in *AskChatBotRequest, opts ...grpc.CallOption) (*AskChatBotResponse, error) {
	out := new(AskChatBotResponse)
	if err := c.cc.Invoke(ctx, "/"+ChatbotServiceName+"/AskChatBot", in, out, callOpts(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}
